package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler owns at most one refresh task. The task sleeps for the current interval,
// then calls run, and repeats. Setting the interval to Off does not interrupt a sleep:
// the task notices at its next wake and exits without calling run. A new interval
// applies from the next sleep.
type Scheduler struct {
	run    func(ctx context.Context)
	sleep  SleepFunc
	logger *slog.Logger

	mu       sync.Mutex
	interval Interval
	running  bool
	done     chan struct{}
	started  int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSleep replaces the timer-based sleep.
func WithSleep(fn SleepFunc) SchedulerOption {
	return func(s *Scheduler) { s.sleep = fn }
}

// NewScheduler creates an idle scheduler that calls run on every wake.
func NewScheduler(run func(ctx context.Context), logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{run: run, sleep: sleepContext, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set changes the interval. Leaving Off starts the task unless one is already alive.
// ctx bounds the lifetime of a task started by this call.
func (s *Scheduler) Set(ctx context.Context, iv Interval) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = iv
	if iv == Off || s.running {
		return
	}
	s.running = true
	s.started++
	s.done = make(chan struct{})
	s.logger.Debug("auto-refresh started", "interval", iv.String())
	go s.loop(ctx, s.done)
}

// Interval returns the configured interval.
func (s *Scheduler) Interval() Interval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Running reports whether a task is alive.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Started returns how many tasks have been started over the scheduler's lifetime.
func (s *Scheduler) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Wait blocks until the current task, if any, has exited.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	for {
		iv, ok := s.next(done)
		if !ok {
			return
		}
		if err := s.sleep(ctx, iv.Duration()); err != nil {
			s.stop(done, "context done")
			return
		}
		if s.Interval() == Off {
			continue
		}
		s.run(ctx)
	}
}

// next returns the interval to sleep for. When the interval is Off it marks the task
// stopped and returns false; check and exit share one lock so Set never sees a dying
// task as alive.
func (s *Scheduler) next(done chan struct{}) (Interval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval == Off {
		s.running = false
		close(done)
		s.logger.Debug("auto-refresh stopped", "reason", "interval off")
		return Off, false
	}
	return s.interval, true
}

func (s *Scheduler) stop(done chan struct{}, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	close(done)
	s.logger.Debug("auto-refresh stopped", "reason", reason)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
