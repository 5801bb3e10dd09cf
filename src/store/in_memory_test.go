package store

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func seedMessages(t *testing.T, s *InMemoryStore, chatID int64, n int, start time.Time, step time.Duration) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		err := s.SaveMessage(ctx, Message{
			ChatID:    chatID,
			MessageID: int64(i + 1),
			UserID:    int64(100 + i%3),
			UserName:  fmt.Sprintf("user%d", i%3),
			Body:      fmt.Sprintf("mensaje %d", i+1),
			Kind:      KindText,
			CreatedAt: start.Add(time.Duration(i) * step),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestRecentMessages_ChronologicalAndLimited(t *testing.T) {
	s := NewInMemoryStore()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	seedMessages(t, s, 1, 10, start, time.Minute)

	msgs, err := s.RecentMessages(context.Background(), 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	// The 4 most recent, oldest first.
	want := []int64{7, 8, 9, 10}
	for i, m := range msgs {
		if m.MessageID != want[i] {
			t.Fatalf("msgs[%d].MessageID = %d, want %d", i, m.MessageID, want[i])
		}
	}
}

func TestRecentMessages_ShortHistory(t *testing.T) {
	s := NewInMemoryStore()
	seedMessages(t, s, 1, 3, time.Now().UTC().Add(-time.Hour), time.Minute)

	msgs, err := s.RecentMessages(context.Background(), 1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
}

func TestEvict_MinimumAlwaysWins(t *testing.T) {
	// 300 messages spanning 2 days; with days_to_keep=1 and minimum=200,
	// exactly the 200 most recent survive regardless of the age window.
	s := NewInMemoryStore()
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	start := now.Add(-48 * time.Hour)
	step := 48 * time.Hour / 300
	seedMessages(t, s, 1, 300, start, step)

	deleted, kept, err := s.EvictMessages(context.Background(), 1, 1, 200)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 100 || kept != 200 {
		t.Fatalf("deleted=%d kept=%d, want 100/200", deleted, kept)
	}

	msgs, err := s.RecentMessages(context.Background(), 1, 300)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 200 {
		t.Fatalf("store has %d messages, want 200", len(msgs))
	}
	if msgs[0].MessageID != 101 || msgs[len(msgs)-1].MessageID != 300 {
		t.Fatalf("kept range [%d..%d], want [101..300]", msgs[0].MessageID, msgs[len(msgs)-1].MessageID)
	}
}

func TestEvict_FloorHoldsWhenEverythingIsOld(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	// All 50 messages are a month old.
	seedMessages(t, s, 1, 50, now.Add(-30*24*time.Hour), time.Minute)

	deleted, kept, err := s.EvictMessages(context.Background(), 1, 7, 40)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 10 || kept != 40 {
		t.Fatalf("deleted=%d kept=%d, want 10/40", deleted, kept)
	}
}

func TestEvict_NoopBelowMinimum(t *testing.T) {
	s := NewInMemoryStore()
	seedMessages(t, s, 1, 5, time.Now().UTC().Add(-100*24*time.Hour), time.Minute)

	deleted, kept, err := s.EvictMessages(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 || kept != 5 {
		t.Fatalf("deleted=%d kept=%d, want 0/5", deleted, kept)
	}
}

func TestEvict_ChatsAreIndependent(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	seedMessages(t, s, 1, 30, now.Add(-30*24*time.Hour), time.Minute)
	seedMessages(t, s, 2, 30, now.Add(-30*24*time.Hour), time.Minute)

	if _, _, err := s.EvictMessages(context.Background(), 1, 7, 10); err != nil {
		t.Fatal(err)
	}
	n, err := s.CountMessages(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 30 {
		t.Fatalf("chat 2 lost messages: %d left, want 30", n)
	}
}

func TestConfig_LazyDefaults(t *testing.T) {
	s := NewInMemoryStore()
	cfg, err := s.Config(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultChatConfig(42)
	if cfg != want {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, want)
	}

	cfg.DailyHour = 9
	if err := s.SaveConfig(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	again, err := s.Config(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if again.DailyHour != 9 {
		t.Fatalf("DailyHour = %d, want 9", again.DailyHour)
	}
}

func TestScheduledChats(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for _, chatID := range []int64{1, 2, 3} {
		if _, err := s.Config(ctx, chatID); err != nil {
			t.Fatal(err)
		}
	}
	cfg, _ := s.Config(ctx, 2)
	cfg.DailyHour = 8
	if err := s.SaveConfig(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	scheduled, err := s.ScheduledChats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(scheduled) != 1 || scheduled[0].ChatID != 2 {
		t.Fatalf("scheduled = %+v, want only chat 2", scheduled)
	}
}
