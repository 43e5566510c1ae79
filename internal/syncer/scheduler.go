package syncer

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler fires the periodic sync trigger. The cron-backed implementation
// runs in production; tests drive the trigger by hand.
type Scheduler interface {
	Start(fn func()) error
	Stop()
}

// CronScheduler triggers at a fixed interval. Intervals below one second
// are rounded up to one second by the underlying cron parser.
type CronScheduler struct {
	interval time.Duration
	runner   *cron.Cron
}

func NewCronScheduler(interval time.Duration) *CronScheduler {
	return &CronScheduler{interval: interval}
}

func (s *CronScheduler) Start(fn func()) error {
	if s.runner != nil {
		return fmt.Errorf("scheduler already started")
	}
	runner := cron.New()
	if _, err := runner.AddFunc(fmt.Sprintf("@every %s", s.interval), fn); err != nil {
		return fmt.Errorf("schedule sync trigger: %w", err)
	}
	runner.Start()
	s.runner = runner
	return nil
}

func (s *CronScheduler) Stop() {
	if s.runner == nil {
		return
	}
	<-s.runner.Stop().Done()
	s.runner = nil
}

// ManualScheduler exposes the trigger for tests.
type ManualScheduler struct {
	fn func()
}

func (s *ManualScheduler) Start(fn func()) error {
	s.fn = fn
	return nil
}

func (s *ManualScheduler) Stop() {
	s.fn = nil
}

// Fire invokes the registered trigger, if any.
func (s *ManualScheduler) Fire() {
	if s.fn != nil {
		s.fn()
	}
}
