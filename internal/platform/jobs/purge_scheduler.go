package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// AuditPurger removes audit entries older than the retention window.
type AuditPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeScheduler triggers the audit retention purge once a day at a fixed UTC hour.
type PurgeScheduler struct {
	purger  AuditPurger
	hourUTC int
	logger  *zap.Logger
	now     func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// PurgeSchedulerOption customises scheduler behaviour.
type PurgeSchedulerOption func(*PurgeScheduler)

// WithPurgeClock injects a custom clock primarily for tests.
func WithPurgeClock(clock func() time.Time) PurgeSchedulerOption {
	return func(s *PurgeScheduler) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewPurgeScheduler constructs a scheduler firing daily at hourUTC.
func NewPurgeScheduler(purger AuditPurger, hourUTC int, logger *zap.Logger, opts ...PurgeSchedulerOption) (*PurgeScheduler, error) {
	if purger == nil {
		return nil, errors.New("purge scheduler: purger is required")
	}
	if hourUTC < 0 || hourUTC > 23 {
		return nil, errors.New("purge scheduler: hour must be between 0 and 23")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scheduler := &PurgeScheduler{
		purger:  purger,
		hourUTC: hourUTC,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(scheduler)
		}
	}
	return scheduler, nil
}

// Start launches the background loop. Call Stop to terminate it.
func (s *PurgeScheduler) Start(ctx context.Context) {
	if s == nil || s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			wait := s.untilNextRun(s.now().UTC())
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			deleted, err := s.purger.PurgeExpired(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				s.logger.Error("audit purge failed", zap.Error(err))
				continue
			}
			s.logger.Info("audit purge completed", zap.Int64("deleted", deleted))
		}
	}()
}

// Stop terminates the loop and waits for the in-flight run to finish.
func (s *PurgeScheduler) Stop() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *PurgeScheduler) untilNextRun(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
