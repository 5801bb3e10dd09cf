// Package bot coordinates ingestion, retention, summarization, and delivery
// for group chats.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/schedule"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/store"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/summarize"
)

// ErrNotEnoughMessages means the chat has too little history for a useful
// summary.
var ErrNotEnoughMessages = errors.New("not enough messages to summarize")

// Summarizer is the slice of the summarization engine the service needs.
type Summarizer interface {
	Summarize(ctx context.Context, content string, kind summarize.Kind, opts summarize.Options) (summarize.Result, error)
}

// Sender delivers text to a chat.
type Sender interface {
	Send(ctx context.Context, dest int64, text string) error
}

// DailyScheduler is the slice of the scheduler the service needs.
type DailyScheduler interface {
	Upsert(chatID int64, hour int) error
	Remove(chatID int64) error
}

// Service wires the message store, summarization engine, delivery, and
// scheduling into the bot's operations.
type Service struct {
	Store  store.MessageStore
	Engine Summarizer
	Sender Sender
	Sched  DailyScheduler
	Log    *zap.Logger

	// HistoryLimit caps how many messages feed one summary.
	HistoryLimit int
	// MinMessages is the floor below which a summary is refused.
	MinMessages int
}

// NewService builds a service with the default history window.
func NewService(st store.MessageStore, eng Summarizer, snd Sender, sched DailyScheduler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:        st,
		Engine:       eng,
		Sender:       snd,
		Sched:        sched,
		Log:          logger,
		HistoryLimit: 300,
		MinMessages:  5,
	}
}

// IngestMessage stores an incoming message and, when the chat's history has
// grown past its eviction threshold, prunes old messages. A failed prune
// surfaces to the caller, but the message itself is already stored by then;
// eviction never blocks ingestion.
func (s *Service) IngestMessage(ctx context.Context, msg store.Message) error {
	if err := s.Store.SaveMessage(ctx, msg); err != nil {
		return err
	}

	cfg, err := s.Store.Config(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	count, err := s.Store.CountMessages(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	if count < cfg.EvictionThreshold {
		return nil
	}

	deleted, kept, err := s.Store.EvictMessages(ctx, msg.ChatID, cfg.DaysToKeep, cfg.MinimumToKeep)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.Log.Info("evicted old messages",
			zap.Int64("chat_id", msg.ChatID),
			zap.Int("deleted", deleted),
			zap.Int("kept", kept))
	}
	return nil
}

// Recent returns the chat's history window in chronological order.
func (s *Service) Recent(ctx context.Context, chatID int64) ([]store.Message, error) {
	return s.Store.RecentMessages(ctx, chatID, s.HistoryLimit)
}

// Config returns the chat's settings, creating defaults on first use.
func (s *Service) Config(ctx context.Context, chatID int64) (store.ChatConfig, error) {
	return s.Store.Config(ctx, chatID)
}

// UpdateConfig persists new settings for a chat.
func (s *Service) UpdateConfig(ctx context.Context, cfg store.ChatConfig) error {
	return s.Store.SaveConfig(ctx, cfg)
}

// SetDailyHour enables the chat's daily summary at the given local hour,
// persisting the setting and (re)arming the scheduler.
func (s *Service) SetDailyHour(ctx context.Context, chatID int64, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("hour %d out of range 0-23", hour)
	}
	cfg, err := s.Store.Config(ctx, chatID)
	if err != nil {
		return err
	}
	cfg.DailyHour = hour
	if err := s.Store.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	return s.Sched.Upsert(chatID, hour)
}

// DisableDaily turns the chat's daily summary off.
func (s *Service) DisableDaily(ctx context.Context, chatID int64) error {
	cfg, err := s.Store.Config(ctx, chatID)
	if err != nil {
		return err
	}
	cfg.DailyHour = store.DailyDisabled
	if err := s.Store.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	return s.Sched.Remove(chatID)
}

// TriggerScheduledSummary runs the daily pipeline for one chat: load config
// and history, summarize, deliver, then evict the summarized window. Failures
// are reported to the chat in a friendly form and logged in full.
func (s *Service) TriggerScheduledSummary(ctx context.Context, chatID int64) {
	if err := s.runScheduledSummary(ctx, chatID); err != nil {
		s.Log.Error("scheduled summary failed",
			zap.Int64("chat_id", chatID), zap.Error(err))
		if msg := friendlyMessage(err); msg != "" {
			if sendErr := s.Sender.Send(ctx, chatID, msg); sendErr != nil {
				s.Log.Warn("could not deliver failure notice",
					zap.Int64("chat_id", chatID), zap.Error(sendErr))
			}
		}
	}
}

func (s *Service) runScheduledSummary(ctx context.Context, chatID int64) error {
	cfg, err := s.Store.Config(ctx, chatID)
	if err != nil {
		return err
	}
	msgs, err := s.Recent(ctx, chatID)
	if err != nil {
		return err
	}
	if len(msgs) < s.MinMessages {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughMessages, len(msgs), s.MinMessages)
	}

	res, err := s.Engine.Summarize(ctx, FormatTranscript(msgs, cfg.IncludeNames), summarize.KindChat, summarize.Options{
		Tone:         cfg.Tone,
		Length:       cfg.Length,
		Language:     cfg.Language,
		IncludeNames: cfg.IncludeNames,
	})
	if err != nil {
		return err
	}
	s.Log.Info("daily summary produced",
		zap.Int64("chat_id", chatID),
		zap.Int("messages", len(msgs)),
		zap.Int("chunks", res.Chunks),
		zap.String("model", res.Model),
		zap.Bool("degraded", res.Degraded))

	if err := s.Sender.Send(ctx, chatID, res.Text); err != nil {
		return err
	}

	// The summarized window is spent; prune regardless of the ingest
	// threshold so daily chats do not accumulate history forever.
	deleted, kept, err := s.Store.EvictMessages(ctx, chatID, cfg.DaysToKeep, cfg.MinimumToKeep)
	if err != nil {
		s.Log.Warn("post-summary eviction failed",
			zap.Int64("chat_id", chatID), zap.Error(err))
		return nil
	}
	if deleted > 0 {
		s.Log.Info("evicted after daily summary",
			zap.Int64("chat_id", chatID),
			zap.Int("deleted", deleted),
			zap.Int("kept", kept))
	}
	return nil
}

// RequestSummary summarizes arbitrary content on demand (a forwarded
// document, a transcript) using the chat's configured style, and delivers the
// result to the chat.
func (s *Service) RequestSummary(ctx context.Context, chatID int64, content string, kind summarize.Kind) error {
	cfg, err := s.Store.Config(ctx, chatID)
	if err != nil {
		return err
	}
	res, err := s.Engine.Summarize(ctx, content, kind, summarize.Options{
		Tone:         cfg.Tone,
		Length:       cfg.Length,
		Language:     cfg.Language,
		IncludeNames: cfg.IncludeNames,
	})
	if err != nil {
		if msg := friendlyMessage(err); msg != "" {
			if sendErr := s.Sender.Send(ctx, chatID, msg); sendErr != nil {
				s.Log.Warn("could not deliver failure notice",
					zap.Int64("chat_id", chatID), zap.Error(sendErr))
			}
		}
		return err
	}
	return s.Sender.Send(ctx, chatID, res.Text)
}

// FormatTranscript renders messages as the model-facing transcript: one line
// per message with a timestamp, optionally the author, and a marker for
// non-text content.
func FormatTranscript(msgs []store.Message, includeNames bool) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.CreatedAt.Format("2006-01-02 15:04"))
		if includeNames && m.UserName != "" {
			b.WriteString(" ")
			b.WriteString(m.UserName)
		}
		b.WriteString(": ")
		if m.Kind != store.KindText && m.Kind != "" {
			fmt.Fprintf(&b, "[%s] ", m.Kind)
		}
		b.WriteString(m.Body)
		b.WriteString("\n")
	}
	return b.String()
}

// friendlyMessage maps pipeline errors to what the chat should read. An empty
// return means nothing user-facing should be sent.
func friendlyMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotEnoughMessages):
		return "Todavía no hay suficientes mensajes para resumir. ¡Dadle más conversación!"
	case errors.Is(err, summarize.ErrEmptyInput):
		return "No encontré contenido que resumir."
	case errors.Is(err, summarize.ErrUnsupportedKind):
		return "No sé resumir ese tipo de contenido."
	case errors.Is(err, summarize.ErrUpstream):
		return "Los modelos están saturados ahora mismo. Inténtalo de nuevo en unos minutos."
	case errors.Is(err, store.ErrStorage):
		return "Hubo un problema leyendo el historial. Inténtalo de nuevo más tarde."
	default:
		return ""
	}
}

// ScheduleSource adapts a MessageStore to the scheduler's rehydration
// interface.
func ScheduleSource(st store.MessageStore) schedule.ConfigSource {
	return scheduleSource{st: st}
}

type scheduleSource struct {
	st store.MessageStore
}

func (s scheduleSource) ScheduledChats(ctx context.Context) ([]schedule.Entry, error) {
	cfgs, err := s.st.ScheduledChats(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]schedule.Entry, 0, len(cfgs))
	for _, cfg := range cfgs {
		entries = append(entries, schedule.Entry{ChatID: cfg.ChatID, Hour: cfg.DailyHour})
	}
	return entries, nil
}
