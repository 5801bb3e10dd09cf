// Package store persists chat messages and per-chat configuration, and
// enforces the bounded-retention policy over message history.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind tags what produced a message's text content. For non-text kinds the
// body holds whatever textual form upstream produced (caption, transcript).
type Kind string

const (
	KindText     Kind = "text"
	KindVoice    Kind = "voice"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindPhoto    Kind = "photo"
	KindDocument Kind = "document"
)

// Message is one chat message as ingested from the transport. Messages are
// immutable once stored; only eviction removes them.
type Message struct {
	ChatID    int64
	MessageID int64 // transport-assigned, strictly increasing within a chat
	UserID    int64
	UserName  string
	Body      string
	ReplyTo   *int64 // MessageID in the same chat, nil when not a reply
	Kind      Kind
	CreatedAt time.Time
}

// Summary tones and length classes understood by the prompt templates.
const (
	ToneNeutral   = "neutral"
	ToneFormal    = "formal"
	ToneCasual    = "casual"
	ToneSarcastic = "sarcastic"

	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// DailyDisabled marks a chat with no scheduled daily summary.
const DailyDisabled = -1

// ChatConfig holds the per-chat summarization and retention settings.
// Exactly one row exists per chat; it is created lazily with defaults the
// first time the chat is referenced.
type ChatConfig struct {
	ChatID       int64
	Tone         string
	Length       string
	Language     string
	IncludeNames bool

	DailyHour int // 0-23, DailyDisabled when off

	DaysToKeep        int
	MinimumToKeep     int
	EvictionThreshold int // message count that triggers eviction during ingestion
}

// DefaultChatConfig returns the settings a chat starts with.
func DefaultChatConfig(chatID int64) ChatConfig {
	return ChatConfig{
		ChatID:            chatID,
		Tone:              ToneNeutral,
		Length:            LengthMedium,
		Language:          "es",
		IncludeNames:      true,
		DailyHour:         DailyDisabled,
		DaysToKeep:        7,
		MinimumToKeep:     200,
		EvictionThreshold: 1000,
	}
}

// ErrStorage marks an I/O failure against the persistence backend. Callers
// must surface it rather than treat it as "no data": a silently empty history
// would corrupt summarization input.
var ErrStorage = errors.New("storage failure")

// MessageStore is the shared persistence contract. RecentMessages returns
// chronological order (oldest first) regardless of how the backend stores
// rows. EvictMessages deletes messages older than daysToKeep but always
// preserves the minimumToKeep most recent ones; the protected set wins over
// the age cutoff.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg Message) error
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]Message, error)
	CountMessages(ctx context.Context, chatID int64) (int, error)
	EvictMessages(ctx context.Context, chatID int64, daysToKeep, minimumToKeep int) (deleted, kept int, err error)

	Config(ctx context.Context, chatID int64) (ChatConfig, error)
	SaveConfig(ctx context.Context, cfg ChatConfig) error
	ScheduledChats(ctx context.Context) ([]ChatConfig, error)

	Close(ctx context.Context) error
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorage, err))
}
