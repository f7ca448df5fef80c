// Package scheduler runs bankroll period rollovers and periodic rescans.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/config"
)

// Roller applies day and week boundaries to bankroll state
type Roller interface {
	Roll(now time.Time)
}

// Scanner re-runs a value scan
type Scanner interface {
	Rescan(ctx context.Context) error
}

// Scheduler manages the cron jobs of the long-running mode
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
	now             func() time.Time
}

// NewScheduler creates a new scheduler running on UTC
func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		logger:          logger.WithField("component", "scheduler"),
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
		now:             time.Now,
	}
}

// Configure schedules the day and week rollovers and, when an interval is
// set, the periodic rescan.
func (s *Scheduler) Configure(cfg config.SchedulerConfig, roller Roller, scanner Scanner) error {
	if err := config.ValidateSection(cfg); err != nil {
		return err
	}
	if err := s.ScheduleRollover(cfg.DayRollover, "day", roller); err != nil {
		return err
	}
	if err := s.ScheduleRollover(cfg.WeekRollover, "week", roller); err != nil {
		return err
	}
	if cfg.ScanIntervalSeconds > 0 && scanner != nil {
		return s.ScheduleScans(cfg.ScanIntervalSeconds, scanner)
	}
	return nil
}

// ScheduleRollover schedules a bankroll rollover on a cron expression
func (s *Scheduler) ScheduleRollover(cronExpression, period string, roller Roller) error {
	jobFunc := func() {
		now := s.now()
		roller.Roll(now)
		s.logger.WithFields(logrus.Fields{
			"period": period,
			"at":     now.UTC().Format(time.RFC3339),
		}).Info("Scheduled rollover completed")
	}
	return s.add(cronExpression, fmt.Sprintf("%s rollover", period), cron.FuncJob(jobFunc))
}

// ScheduleScans schedules a rescan every intervalSeconds. A scan that is
// still running when the next one is due causes that run to be skipped.
func (s *Scheduler) ScheduleScans(intervalSeconds int, scanner Scanner) error {
	if intervalSeconds < 5 {
		intervalSeconds = 5
	}
	timeout := time.Duration(intervalSeconds) * time.Second

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := s.now()
		if err := scanner.Rescan(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled scan failed")
			return
		}
		s.logger.WithField("duration", time.Since(start).String()).Debug("Scheduled scan completed")
	}

	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(jobFunc))
	return s.add(fmt.Sprintf("@every %ds", intervalSeconds), "scan", job)
}

func (s *Scheduler) add(spec, name string, job cron.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddJob(spec, job)
	if err != nil {
		return fmt.Errorf("failed to add %s job: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":  name,
		"spec": spec,
	}).Info("Job scheduled")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled job run
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
