package schedule

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNextFire(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2025, 3, 1, 7, 30, 0, 0, loc),
			hour: 9,
			want: time.Date(2025, 3, 1, 9, 0, 0, 0, loc),
		},
		{
			name: "already passed rolls to tomorrow",
			now:  time.Date(2025, 3, 1, 10, 0, 1, 0, loc),
			hour: 9,
			want: time.Date(2025, 3, 2, 9, 0, 0, 0, loc),
		},
		{
			name: "exactly on the hour rolls forward",
			now:  time.Date(2025, 3, 1, 9, 0, 0, 0, loc),
			hour: 9,
			want: time.Date(2025, 3, 2, 9, 0, 0, 0, loc),
		},
		{
			name: "midnight schedule",
			now:  time.Date(2025, 3, 1, 23, 59, 0, 0, loc),
			hour: 0,
			want: time.Date(2025, 3, 2, 0, 0, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextFire(tt.now, tt.hour, loc)
			if !got.Equal(tt.want) {
				t.Fatalf("nextFire = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpsertBeforeStart(t *testing.T) {
	s := NewScheduler(func(context.Context, int64) {}, time.UTC, zap.NewNop())
	if err := s.Upsert(1, 9); err != ErrInactive {
		t.Fatalf("err = %v, want ErrInactive", err)
	}
}

func TestUpsertValidatesHour(t *testing.T) {
	s := NewScheduler(func(context.Context, int64) {}, time.UTC, zap.NewNop())
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	for _, hour := range []int{-1, 24, 100} {
		if err := s.Upsert(1, hour); err == nil {
			t.Fatalf("Upsert accepted hour %d", hour)
		}
	}
}

func TestUpsertReplacesExisting(t *testing.T) {
	s := NewScheduler(func(context.Context, int64) {}, time.UTC, zap.NewNop())
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	if err := s.Upsert(1, 9); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(1, 21); err != nil {
		t.Fatal(err)
	}
	if hour, ok := s.Hour(1); !ok || hour != 21 {
		t.Fatalf("Hour = %d/%v, want 21/true", hour, ok)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := NewScheduler(func(context.Context, int64) {}, time.UTC, zap.NewNop())
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	if err := s.Upsert(1, 9); err != nil {
		t.Fatal(err)
	}
	for _, chatID := range []int64{1, 1, 42} { // repeats and unknowns are no-ops
		if err := s.Remove(chatID); err != nil {
			t.Fatalf("Remove(%d) = %v", chatID, err)
		}
	}

	if _, ok := s.Hour(1); ok {
		t.Fatal("chat 1 still scheduled after Remove")
	}
}

func TestRemoveBeforeStart(t *testing.T) {
	s := NewScheduler(func(context.Context, int64) {}, time.UTC, zap.NewNop())
	if err := s.Remove(1); err != ErrInactive {
		t.Fatalf("err = %v, want ErrInactive", err)
	}
}

type staticSource struct {
	entries []Entry
}

func (s staticSource) ScheduledChats(context.Context) ([]Entry, error) {
	return s.entries, nil
}

func TestStartRehydrates(t *testing.T) {
	s := NewScheduler(func(context.Context, int64) {}, time.UTC, zap.NewNop())
	src := staticSource{entries: []Entry{{ChatID: 1, Hour: 8}, {ChatID: 2, Hour: 22}}}
	if err := s.Start(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	if hour, ok := s.Hour(1); !ok || hour != 8 {
		t.Fatalf("chat 1 hour = %d/%v, want 8/true", hour, ok)
	}
	if hour, ok := s.Hour(2); !ok || hour != 22 {
		t.Fatalf("chat 2 hour = %d/%v, want 22/true", hour, ok)
	}
}

func TestStopEndsJobs(t *testing.T) {
	s := NewScheduler(func(context.Context, int64) {}, time.UTC, zap.NewNop())
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(1, 9); err != nil {
		t.Fatal(err)
	}
	s.Stop() // must not hang

	if err := s.Upsert(2, 10); err != ErrInactive {
		t.Fatalf("Upsert after Stop = %v, want ErrInactive", err)
	}
}
