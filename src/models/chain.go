package models

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultFallbackDelay is the pause inserted before moving to the next model
// so the fallback is not hammered immediately after a rate limit.
const DefaultFallbackDelay = 2 * time.Second

// Chain walks a priority-ordered list of models. Each Generate call starts at
// the first model and moves down the list whenever the current one fails with
// a retryable error; a non-retryable error is returned immediately. The index
// of the model that served the call is reported so callers can distinguish
// "succeeded via fallback" from "succeeded via primary".
type Chain struct {
	Models []Model
	Delay  time.Duration
	Logger *zap.Logger
}

// NewChain builds a fallback chain over the given models.
func NewChain(logger *zap.Logger, ms ...Model) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{Models: ms, Delay: DefaultFallbackDelay, Logger: logger}
}

// Generate runs the completion through the chain. It returns the text and the
// index of the model that produced it. When every model fails with a
// retryable error the call fails with ErrExhausted wrapping the last error.
func (c *Chain) Generate(ctx context.Context, system, user string) (string, int, error) {
	if len(c.Models) == 0 {
		return "", 0, fmt.Errorf("%w: chain is empty", ErrExhausted)
	}

	var lastErr error
	for i, m := range c.Models {
		if i > 0 && c.Delay > 0 {
			select {
			case <-ctx.Done():
				return "", i, ctx.Err()
			case <-time.After(c.Delay):
			}
		}

		text, err := m.Generate(ctx, system, user)
		if err == nil {
			if i > 0 {
				c.Logger.Warn("model call served by fallback",
					zap.String("model", m.Name()),
					zap.Int("fallback_depth", i))
			}
			return text, i, nil
		}
		if !IsRetryable(err) {
			return "", i, fmt.Errorf("model %s: %w", m.Name(), err)
		}
		c.Logger.Warn("model call failed, trying next in chain",
			zap.String("model", m.Name()),
			zap.Error(err))
		lastErr = err
	}

	return "", len(c.Models) - 1, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}
