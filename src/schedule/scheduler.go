// Package schedule fires a per-chat daily trigger at a configured local hour.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInactive is returned when the scheduler is asked to manage jobs before
// Start or after Stop.
var ErrInactive = errors.New("scheduler is not running")

// ConfigSource lists the chats that currently have a daily summary enabled.
// It is consulted once, at Start, to rehydrate jobs after a restart.
type ConfigSource interface {
	ScheduledChats(ctx context.Context) ([]Entry, error)
}

// Entry is one chat's schedule.
type Entry struct {
	ChatID int64
	Hour   int // 0-23, local to the scheduler's location
}

// TriggerFunc runs the daily work for one chat. Errors are the trigger's own
// business; the scheduler keeps firing regardless.
type TriggerFunc func(ctx context.Context, chatID int64)

type job struct {
	hour   int
	cancel context.CancelFunc
}

// Scheduler runs one goroutine per scheduled chat, each sleeping until the
// chat's next local firing time. Chats are fully independent: a slow or
// failing trigger in one chat never delays another.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[int64]*job
	loc     *time.Location
	trigger TriggerFunc
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler builds a stopped scheduler. loc defaults to time.Local.
func NewScheduler(trigger TriggerFunc, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		jobs:    make(map[int64]*job),
		loc:     loc,
		trigger: trigger,
		log:     logger,
	}
}

// Start activates the scheduler and rehydrates jobs from src, so schedules
// survive process restarts. src may be nil.
func (s *Scheduler) Start(ctx context.Context, src ConfigSource) error {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if src == nil {
		return nil
	}
	entries, err := src.ScheduledChats(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate schedules: %w", err)
	}
	for _, e := range entries {
		if err := s.Upsert(e.ChatID, e.Hour); err != nil {
			s.log.Warn("skipping invalid persisted schedule",
				zap.Int64("chat_id", e.ChatID),
				zap.Int("hour", e.Hour),
				zap.Error(err))
		}
	}
	s.log.Info("scheduler started", zap.Int("jobs", len(entries)))
	return nil
}

// Upsert schedules (or reschedules) the daily trigger for a chat.
func (s *Scheduler) Upsert(chatID int64, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("hour %d out of range 0-23", hour)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil || s.ctx.Err() != nil {
		return ErrInactive
	}

	if old, ok := s.jobs[chatID]; ok {
		old.cancel()
	}

	jctx, cancel := context.WithCancel(s.ctx)
	s.jobs[chatID] = &job{hour: hour, cancel: cancel}

	s.wg.Add(1)
	go s.run(jctx, chatID, hour)
	return nil
}

// Remove drops a chat's schedule. Removing an unscheduled chat is a no-op;
// calling before Start or after Stop is an error, since the caller's config
// would silently drift from actual behavior.
func (s *Scheduler) Remove(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil || s.ctx.Err() != nil {
		return ErrInactive
	}
	if j, ok := s.jobs[chatID]; ok {
		j.cancel()
		delete(s.jobs, chatID)
	}
	return nil
}

// Hour reports the scheduled hour for a chat, or false when none is set.
func (s *Scheduler) Hour(chatID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[chatID]
	if !ok {
		return 0, false
	}
	return j.hour, true
}

// Stop cancels all jobs and waits for their goroutines to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.jobs = make(map[int64]*job)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, chatID int64, hour int) {
	defer s.wg.Done()
	for {
		wait := time.Until(nextFire(time.Now().In(s.loc), hour, s.loc))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.log.Info("daily summary trigger fired",
			zap.Int64("chat_id", chatID),
			zap.Int("hour", hour))
		s.trigger(ctx, chatID)
	}
}

// nextFire returns the next occurrence of hour:00 strictly after now.
func nextFire(now time.Time, hour int, loc *time.Location) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
