// Package scheduler runs periodic retraining of the forecasting artifact.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/forecast"
	"github.com/yourusername/bracket-forecast/internal/logger"
	"github.com/yourusername/bracket-forecast/internal/repository"
)

// ErrNoTrainableSeasons is returned when every configured season starts after the cutoff
var ErrNoTrainableSeasons = errors.New("no configured season starts before the cutoff")

// Trainer produces an artifact for a training request
type Trainer interface {
	Train(ctx context.Context, req forecast.TrainRequest) (*forecast.Artifact, error)
}

// Options controls what a retraining run trains on and where it stores the result
type Options struct {
	Seasons     []int
	ArtifactDir string
	Activate    bool
	Timeout     time.Duration
}

// Scheduler manages scheduled retraining jobs
type Scheduler struct {
	cron            *cron.Cron
	trainer         Trainer
	artifacts       repository.ArtifactRepository
	options         Options
	logger          *logrus.Logger
	audit           *logger.AuditLogger
	now             func() time.Time
	mu              sync.RWMutex
	runMu           sync.Mutex
	isRunning       bool
	jobIDs          []cron.EntryID
	lastRun         time.Time
	lastArtifact    *forecast.Artifact
	lastErr         error
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(trainer Trainer, artifacts repository.ArtifactRepository, opts Options, log *logrus.Logger) *Scheduler {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Hour
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		trainer:         trainer,
		artifacts:       artifacts,
		options:         opts,
		logger:          log,
		audit:           logger.NewAuditLogger(log),
		now:             time.Now,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleRetrain schedules retraining with the given cron expression
func (s *Scheduler) ScheduleRetrain(cronExpression string) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return 0, fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.options.Timeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			s.audit.LogRetrainFailure(cronExpression, err)
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return 0, fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled retraining job")

	return entryID, nil
}

// RunOnce trains an artifact as of today and stores it. Concurrent calls
// are serialized.
func (s *Scheduler) RunOnce(ctx context.Context) (*forecast.Artifact, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	artifact, err := s.retrain(ctx)

	s.mu.Lock()
	s.lastRun = s.now().UTC()
	s.lastErr = err
	if err == nil {
		s.lastArtifact = artifact
	}
	s.mu.Unlock()

	return artifact, err
}

func (s *Scheduler) retrain(ctx context.Context) (*forecast.Artifact, error) {
	now := s.now().UTC()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	seasons := trainableSeasons(s.options.Seasons, cutoff)
	if len(seasons) == 0 {
		return nil, ErrNoTrainableSeasons
	}

	artifact, err := s.trainer.Train(ctx, forecast.TrainRequest{
		Name:    fmt.Sprintf("scheduled-%s", dates.FormatDate(cutoff)),
		Seasons: seasons,
		Cutoff:  cutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("retraining failed: %w", err)
	}

	if s.options.ArtifactDir != "" {
		path := filepath.Join(s.options.ArtifactDir, artifact.FileName())
		if err := forecast.SaveArtifact(path, artifact); err != nil {
			return nil, err
		}
		s.audit.LogArtifactSaved(artifact.ID.String(), artifact.Name, path, artifact.Cutoff, artifact.Seasons)
	}

	if s.artifacts != nil {
		rec, err := artifact.Record()
		if err != nil {
			return nil, err
		}
		if err := s.artifacts.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to store artifact: %w", err)
		}
		s.audit.LogArtifactSaved(artifact.ID.String(), artifact.Name, "repository", artifact.Cutoff, artifact.Seasons)

		if s.options.Activate {
			if err := s.artifacts.SetActive(ctx, artifact.ID); err != nil {
				return nil, fmt.Errorf("failed to activate artifact: %w", err)
			}
			s.audit.LogArtifactActivated(artifact.ID.String(), artifact.Name, artifact.Cutoff)
		}
	}

	return artifact, nil
}

// trainableSeasons keeps the seasons that started on or before the cutoff
func trainableSeasons(seasons []int, cutoff time.Time) []int {
	var out []int
	for _, season := range seasons {
		if !dates.SeasonStart(season).After(cutoff) {
			out = append(out, season)
		}
	}
	return out
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

// Stop waits for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	stopped := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler did not stop within %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastRun returns the time, artifact and error of the most recent run
func (s *Scheduler) LastRun() (time.Time, *forecast.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.lastArtifact, s.lastErr
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
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

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(jobID cron.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}

	s.cron.Remove(jobID)
	for i, id := range s.jobIDs {
		if id == jobID {
			s.jobIDs = append(s.jobIDs[:i], s.jobIDs[i+1:]...)
			break
		}
	}
	s.logger.WithField("job_id", jobID).Info("Removed job")

	return nil
}
