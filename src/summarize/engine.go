package summarize

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/chunker"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/concurrent"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/models"
)

// Engine runs summaries. Content under SingleCallBudget goes to the Final
// chain in one call; larger content is chunked, mapped in parallel over the
// Map chain, and reduced with the Final chain.
type Engine struct {
	Final *models.Chain // reduce step and small inputs
	Map   *models.Chain // per-chunk extraction; falls back to Final when nil

	SingleCallBudget int // chars; chunker.DefaultMaxChars when non-positive
	MaxConcurrency   int
	Logger           *zap.Logger
}

// NewEngine wires an engine with sane defaults.
func NewEngine(final, mapChain *models.Chain, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mapChain == nil {
		mapChain = final
	}
	return &Engine{
		Final:            final,
		Map:              mapChain,
		SingleCallBudget: chunker.DefaultMaxChars,
		MaxConcurrency:   4,
		Logger:           logger,
	}
}

// Result carries the summary plus how it was produced.
type Result struct {
	Text     string
	Kind     Kind
	Model    string // model that produced the final text
	Degraded bool   // true when any call was served by a fallback model
	Chunks   int    // 1 for single-call summaries
}

// Summarize produces a summary of content. It validates the kind and input,
// then picks single-call or map-reduce based on content size.
func (e *Engine) Summarize(ctx context.Context, content string, kind Kind, opts Options) (Result, error) {
	if !kind.valid() {
		return Result{}, fmt.Errorf("%w: %d", ErrUnsupportedKind, int(kind))
	}
	if strings.TrimSpace(content) == "" {
		return Result{}, ErrEmptyInput
	}

	budget := e.SingleCallBudget
	if budget <= 0 {
		budget = chunker.DefaultMaxChars
	}

	if len(content) <= budget {
		return e.summarizeSingle(ctx, content, kind, opts)
	}
	return e.summarizeLarge(ctx, content, kind, opts, budget)
}

func (e *Engine) summarizeSingle(ctx context.Context, content string, kind Kind, opts Options) (Result, error) {
	text, used, err := e.Final.Generate(ctx, buildSystem(kind, opts), content)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return Result{
		Text:     text,
		Kind:     kind,
		Model:    e.Final.Models[used].Name(),
		Degraded: used > 0,
		Chunks:   1,
	}, nil
}

func (e *Engine) summarizeLarge(ctx context.Context, content string, kind Kind, opts Options, budget int) (Result, error) {
	chunks := chunker.Split(content, budget)
	e.Logger.Info("content over single-call budget, running map-reduce",
		zap.Int("content_chars", len(content)),
		zap.Int("chunks", len(chunks)),
		zap.String("kind", kind.String()))

	// A single oversized chunk (one unbreakable run of text) needs no
	// map step at all.
	if len(chunks) == 1 {
		return e.summarizeSingle(ctx, chunks[0], kind, opts)
	}

	mapChain := e.Map
	if mapChain == nil {
		mapChain = e.Final
	}
	mapSystem := buildMapSystem(opts)

	var degraded atomic.Bool
	extracts, err := concurrent.ParallelMap(ctx, chunks, func(chunk string) (string, error) {
		text, used, err := mapChain.Generate(ctx, mapSystem, chunk)
		if used > 0 {
			degraded.Store(true)
		}
		return text, err
	}, e.MaxConcurrency)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	text, used, err := e.Final.Generate(ctx, buildSystem(kind, opts), buildReduceUser(extracts))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return Result{
		Text:     text,
		Kind:     kind,
		Model:    e.Final.Models[used].Name(),
		Degraded: degraded.Load() || used > 0,
		Chunks:   len(chunks),
	}, nil
}
