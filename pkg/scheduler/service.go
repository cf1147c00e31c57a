package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ReloadFunc rebuilds the session
type ReloadFunc func(ctx context.Context) error

// Status describes the last scheduled run
type Status struct {
	Schedule string    `json:"schedule"`
	LastRun  time.Time `json:"last_run,omitempty"`
	LastErr  string    `json:"last_error,omitempty"`
	NextRun  time.Time `json:"next_run"`
	Runs     int       `json:"runs"`
}

// Service runs the session reload on a cron schedule
type Service struct {
	cron     *cron.Cron
	spec     string
	schedule cron.Schedule
	reload   ReloadFunc
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	status Status
}

// NewService creates a scheduler for spec, a standard five-field cron expression
func NewService(spec string, reload ReloadFunc, logger *slog.Logger) (*Service, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cron:     cron.New(),
		spec:     spec,
		schedule: schedule,
		reload:   reload,
		logger:   logger,
		timeout:  5 * time.Minute,
	}
	s.status.Schedule = spec
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunNow(ctx)
	}))
	return s, nil
}

// Start starts the scheduler
func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info("reload scheduler started", "schedule", s.spec, "next_run", s.Next(time.Now()))
}

// Stop stops the scheduler and waits for a running reload to finish
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("reload scheduler stopped")
}

// RunNow performs a reload immediately and records the outcome
func (s *Service) RunNow(ctx context.Context) error {
	started := time.Now()
	err := s.reload(ctx)

	s.mu.Lock()
	s.status.LastRun = started
	s.status.Runs++
	s.status.LastErr = ""
	if err != nil {
		s.status.LastErr = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled reload failed", "error", err)
		return err
	}
	s.logger.Info("scheduled reload finished", "duration", time.Since(started))
	return nil
}

// Next returns the first scheduled run after t
func (s *Service) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Status returns a snapshot of the scheduler state
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.NextRun = s.Next(time.Now())
	return st
}
