package mpc

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler drives the periodic replan tick for every active ride,
// the way a cron-style background worker keeps polling external state
// instead of each ride owning its own goroutine and timer.
type Scheduler struct {
	sched gocron.Scheduler
	log   *zap.Logger
}

// NewScheduler constructs a Scheduler using gocron's in-process
// scheduler. Call Start to begin running ticks and Shutdown to stop.
func NewScheduler(log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{sched: s, log: log}, nil
}

// TickFunc is invoked once per interval; it is the caller's
// responsibility to iterate its own active rides and call
// ShouldReplan/Commit on each one's State.
type TickFunc func(ctx context.Context)

// ScheduleTick registers a recurring job that runs fn every interval,
// using gocron's default start for a duration job. Returns gocron's
// error if the job cannot be registered.
func (s *Scheduler) ScheduleTick(interval time.Duration, fn TickFunc) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			fn(context.Background())
		}),
	)
	if err != nil {
		return err
	}
	s.log.Info("mpc scheduler: tick registered", zap.Duration("interval", interval))
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown stops the scheduler and waits for in-flight jobs to finish.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
