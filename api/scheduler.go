/*
scheduler.go - Automated monthly payroll run

PURPOSE:
  Runs the batch payroll for the previous calendar month on a cron schedule
  as hr.SystemActor. Duplicate payslips are skipped by the runner, so a
  schedule that fires twice for the same month is harmless.

CONFIGURATION:
  - Spec:    standard 5-field cron expression (default "0 2 1 * *",
             02:00 on the 1st of every month)
  - Enabled: whether Start schedules anything (default false)

USAGE:
  s := NewPayrollScheduler(services.Runner, cfg.Scheduler.Spec, logger)
  s.Enabled = true
  if err := s.Start(); err != nil { ... }
  defer s.Stop()

SEE ALSO:
  - payroll/batch.go: Runner.RunForAll
  - config/config.go: PAYROLL_SCHEDULER_* variables
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/payroll"
)

const DefaultScheduleSpec = "0 2 1 * *"

// PayrollScheduler triggers RunForAll on a cron schedule.
type PayrollScheduler struct {
	Runner  *payroll.Runner
	Spec    string
	Enabled bool
	Timeout time.Duration
	Logger  *zap.Logger
	Now     func() time.Time

	cron    *cron.Cron
	lastRun *payroll.RunResult
	mu      sync.Mutex
}

func NewPayrollScheduler(runner *payroll.Runner, spec string, logger ...*zap.Logger) *PayrollScheduler {
	if spec == "" {
		spec = DefaultScheduleSpec
	}
	l := zap.L().Named("api.scheduler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &PayrollScheduler{
		Runner:  runner,
		Spec:    spec,
		Timeout: 10 * time.Minute,
		Logger:  l,
		Now:     time.Now,
	}
}

// Start registers the job and starts the cron loop. It is a no-op when the
// scheduler is disabled or already running.
func (s *PayrollScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("payroll scheduler disabled, not starting")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.Spec, func() { s.RunNow(context.Background()) }); err != nil {
		return fmt.Errorf("invalid payroll schedule %q: %w", s.Spec, err)
	}
	c.Start()
	s.cron = c

	s.Logger.Info("payroll scheduler started",
		zap.String("spec", s.Spec),
		zap.Time("next_run", s.nextRunLocked()))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *PayrollScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		s.Logger.Info("payroll scheduler stopped")
	}
}

// RunNow runs the batch for the month before Now.
func (s *PayrollScheduler) RunNow(ctx context.Context) (payroll.RunResult, error) {
	month := PreviousMonth(s.Now())
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	s.Logger.Info("scheduled payroll run", zap.String("month", month.String()))
	res, err := s.Runner.RunForAll(ctx, month, hr.SystemActor)
	if err != nil {
		s.Logger.Error("scheduled payroll run failed", zap.String("month", month.String()), zap.Error(err))
		return res, err
	}

	s.mu.Lock()
	s.lastRun = &res
	s.mu.Unlock()

	s.Logger.Info("scheduled payroll run completed",
		zap.String("period", res.Period.String()),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("skipped_or_failed", res.SkippedOrFailed))
	return res, nil
}

// LastRun returns the result of the most recent successful run, if any.
func (s *PayrollScheduler) LastRun() (payroll.RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return payroll.RunResult{}, false
	}
	return *s.lastRun, true
}

// NextRun returns when the job fires next, or the zero time if stopped.
func (s *PayrollScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunLocked()
}

func (s *PayrollScheduler) nextRunLocked() time.Time {
	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// PreviousMonth returns the first day of the month before t.
func PreviousMonth(t time.Time) hr.Date {
	d := hr.DateOf(t)
	return hr.StartOfMonth(d.Year(), d.Month()).AddMonths(-1)
}
