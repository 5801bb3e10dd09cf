// Package deliver sends summary text to a chat transport, splitting long
// output into ordered, paced parts that fit the transport's message limit.
package deliver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Transport sends one message to a destination chat.
type Transport interface {
	Send(ctx context.Context, dest int64, text string) error
}

const (
	// DefaultMaxMessageLen stays under Telegram's 4096-char limit with
	// headroom for the part prefix.
	DefaultMaxMessageLen = 4000

	// DefaultPause spaces consecutive parts so the transport's flood
	// limits are not tripped.
	DefaultPause = 500 * time.Millisecond
)

// PartialError reports a delivery that failed midway: Sent parts reached the
// chat before Err stopped the rest.
type PartialError struct {
	Sent  int
	Total int
	Err   error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("delivered %d/%d parts: %v", e.Sent, e.Total, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Sender splits text into parts and sends them in order through a Transport.
type Sender struct {
	Transport     Transport
	MaxMessageLen int
	Pause         time.Duration
	Logger        *zap.Logger
}

// NewSender wires a sender with the default part size and pacing.
func NewSender(t Transport, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		Transport:     t,
		MaxMessageLen: DefaultMaxMessageLen,
		Pause:         DefaultPause,
		Logger:        logger,
	}
}

// Send delivers text to dest. Short text goes out as a single message with no
// prefix; long text is split on rune boundaries into "[i/n] ..." parts sent
// in order with a pause between them. A mid-delivery failure returns a
// PartialError so callers know how much arrived.
func (s *Sender) Send(ctx context.Context, dest int64, text string) error {
	maxLen := s.MaxMessageLen
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLen
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return s.Transport.Send(ctx, dest, text)
	}

	// Reserve room for the "[i/n] " prefix inside each part.
	const prefixHeadroom = 12
	body := maxLen - prefixHeadroom
	if body < 1 {
		body = 1
	}

	var parts []string
	for start := 0; start < len(runes); start += body {
		end := start + body
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}

	s.Logger.Info("splitting long summary for delivery",
		zap.Int64("chat_id", dest),
		zap.Int("parts", len(parts)),
		zap.Int("runes", len(runes)))

	for i, part := range parts {
		if i > 0 && s.Pause > 0 {
			select {
			case <-ctx.Done():
				return &PartialError{Sent: i, Total: len(parts), Err: ctx.Err()}
			case <-time.After(s.Pause):
			}
		}
		msg := fmt.Sprintf("[%d/%d] %s", i+1, len(parts), part)
		if err := s.Transport.Send(ctx, dest, msg); err != nil {
			return &PartialError{Sent: i, Total: len(parts), Err: err}
		}
	}
	return nil
}
