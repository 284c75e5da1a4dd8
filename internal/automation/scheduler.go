package automation

import (
	"context"
	"time"

	"github.com/teemow/inboxpilot/internal/logging"
)

// MinInterval is the shortest allowed wait between scheduled iterations.
const MinInterval = time.Minute

// Scheduler refreshes the mail snapshot and runs the cycle on a fixed
// interval until its context is cancelled.
type Scheduler struct {
	rt        *Runtime
	cycle     *Cycle
	refresher Refresher
	interval  time.Duration
	logger    logging.Logger
	now       func() time.Time
}

// NewScheduler builds a scheduler. refresher may be nil. interval is raised
// to MinInterval when shorter.
func NewScheduler(rt *Runtime, cycle *Cycle, refresher Refresher, interval time.Duration, logger logging.Logger) *Scheduler {
	if interval < MinInterval {
		interval = MinInterval
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Scheduler{
		rt:        rt,
		cycle:     cycle,
		refresher: refresher,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Interval returns the effective wait between iterations.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run blocks, running an iteration immediately and then once per interval.
// It returns nil when ctx is cancelled, after the in-flight iteration ends.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("auto-label scheduler started", "interval", s.interval.String())
	defer s.logger.Info("auto-label scheduler stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return nil
		}
		s.Tick(ctx)
		timer.Reset(s.interval)
	}
}

// Tick performs one iteration: snapshot refresh, then a cycle.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.refresher != nil && s.cycle.CredentialsAvailable() {
		n, err := s.refresher.Refresh(context.WithoutCancel(ctx))
		if err != nil {
			s.logger.Warn("mail snapshot refresh failed", logging.Err(err))
		} else {
			s.rt.Status.RecordRefresh(s.now().UTC())
			s.logger.Debug("mail snapshot refreshed", "messages", n)
		}
	}
	s.cycle.Run(ctx, TriggerScheduler)
}
