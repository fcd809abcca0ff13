package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler refreshes rates once on start and then on every tick of a fixed interval.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(refresher Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
	}
}

// Start runs the refresh loop in the background until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		_ = s.Run(ctx)
	}(s.done)
}

// Stop cancels the loop started by Start and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Run blocks until ctx is done. Refresh failures are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	const op = "scheduler.Run"

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.trigger(ctx, "startup")

	for {
		select {
		case <-ticker.C:
			s.trigger(ctx, "interval")

		case <-ctx.Done():
			slog.Info("rate refresh stopped", "op", op)
			return errors.Wrap(ctx.Err(), op)
		}
	}
}

// RefreshNow refreshes synchronously and returns once the attempt is over. If another
// refresh is running it returns at once with ErrRefreshInProgress.
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	const op = "scheduler.RefreshNow"

	err := s.refresher.Refresh(ctx)
	logResult(op, "manual", err)

	return err
}

func (s *Scheduler) trigger(ctx context.Context, reason string) {
	const op = "scheduler.trigger"

	logResult(op, reason, s.refresher.Refresh(ctx))
}

func logResult(op, reason string, err error) {
	switch {
	case err == nil:
		slog.Debug("rates refresh finished", "op", op, "reason", reason)
	case errors.Is(err, entities.ErrRefreshInProgress):
		slog.Debug("rates refresh skipped", "op", op, "reason", reason)
	case errors.Is(err, context.Canceled):
		slog.Debug("rates refresh cancelled", "op", op, "reason", reason)
	default:
		slog.Error("rates refresh failed, keeping cached rates", "op", op, "reason", reason, "error", err)
	}
}
