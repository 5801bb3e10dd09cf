package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore implements MessageStore for tests and ephemeral deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages map[int64][]Message
	configs  map[int64]ChatConfig
	now      func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		messages: make(map[int64][]Message),
		configs:  make(map[int64]ChatConfig),
		now:      time.Now,
	}
}

func (s *InMemoryStore) SaveMessage(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], msg)
	return nil
}

func (s *InMemoryStore) RecentMessages(_ context.Context, chatID int64, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		return nil, nil
	}

	msgs := append([]Message(nil), s.messages[chatID]...)
	sortByRecency(msgs)
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	// Newest-first internally, chronological for callers.
	reverse(msgs)
	return msgs, nil
}

func (s *InMemoryStore) CountMessages(_ context.Context, chatID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[chatID]), nil
}

func (s *InMemoryStore) EvictMessages(_ context.Context, chatID int64, daysToKeep, minimumToKeep int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[chatID]
	if len(msgs) <= minimumToKeep {
		return 0, len(msgs), nil
	}

	sorted := append([]Message(nil), msgs...)
	sortByRecency(sorted)

	cutoff := s.now().UTC().AddDate(0, 0, -daysToKeep)
	kept := make([]Message, 0, len(sorted))
	deleted := 0
	for i, m := range sorted {
		if i < minimumToKeep || !m.CreatedAt.Before(cutoff) {
			kept = append(kept, m)
			continue
		}
		deleted++
	}

	reverse(kept)
	s.messages[chatID] = kept
	return deleted, len(kept), nil
}

func (s *InMemoryStore) Config(_ context.Context, chatID int64) (ChatConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[chatID]
	if !ok {
		cfg = DefaultChatConfig(chatID)
		s.configs[chatID] = cfg
	}
	return cfg, nil
}

func (s *InMemoryStore) SaveConfig(_ context.Context, cfg ChatConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ChatID] = cfg
	return nil
}

func (s *InMemoryStore) ScheduledChats(_ context.Context) ([]ChatConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ChatConfig
	for _, cfg := range s.configs {
		if cfg.DailyHour != DailyDisabled {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (s *InMemoryStore) Close(context.Context) error { return nil }

func sortByRecency(msgs []Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].MessageID > msgs[j].MessageID
	})
}

func reverse(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

var _ MessageStore = (*InMemoryStore)(nil)
