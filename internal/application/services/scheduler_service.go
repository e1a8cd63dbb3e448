package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	apperrors "github.com/contractgen/backend/pkg/errors"
)

// schedulerJobTimeout bounds a single autosave or backup run
const schedulerJobTimeout = 2 * time.Minute

var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a five-field cron expression or @descriptor
func ValidateSchedule(spec string) error {
	if _, err := specParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// SchedulerService runs the periodic autosave and the daily backup
type SchedulerService struct {
	cron    *cron.Cron
	session *Session
	storage *StorageService
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewSchedulerService registers the autosave and backup jobs. An empty spec disables that job.
func NewSchedulerService(session *Session, storage *StorageService, logger *zap.Logger, autosaveSpec, backupSpec string) (*SchedulerService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SchedulerService{
		session: session,
		storage: storage,
		logger:  logger,
	}
	s.cron = cron.New(
		cron.WithParser(specParser),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)

	if autosaveSpec != "" {
		if _, err := s.cron.AddFunc(autosaveSpec, s.job("autosave", s.RunAutosave)); err != nil {
			return nil, fmt.Errorf("invalid autosave schedule %q: %w", autosaveSpec, err)
		}
	}
	if backupSpec != "" {
		if _, err := s.cron.AddFunc(backupSpec, s.job("backup", s.RunBackup)); err != nil {
			return nil, fmt.Errorf("invalid backup schedule %q: %w", backupSpec, err)
		}
	}
	return s, nil
}

// Start begins running jobs in the background
func (s *SchedulerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stopped {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("⏰ Scheduler service started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop halts the scheduler and waits for running jobs to complete
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if !s.running || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("⏰ Scheduler service stopped")
}

// NextRuns returns the next activation of every job
func (s *SchedulerService) NextRuns() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

func (s *SchedulerService) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), schedulerJobTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("❌ Scheduled job failed",
				zap.String("job", name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
			return
		}
		s.logger.Debug("✅ Scheduled job completed",
			zap.String("job", name),
			zap.Duration("duration", time.Since(start)))
	}
}

// RunAutosave saves the session when it has unsaved changes
func (s *SchedulerService) RunAutosave(ctx context.Context) error {
	saved, err := s.session.Autosave(ctx)
	if err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	if saved {
		s.logger.Info("💾 Contract autosaved")
	}
	return nil
}

// RunBackup copies the saved state to today's backup and prunes expired backups
func (s *SchedulerService) RunBackup(ctx context.Context) error {
	key, err := s.storage.CreateBackup(ctx)
	switch {
	case errors.Is(err, apperrors.ErrNoSavedState):
		s.logger.Info("⏭️ No saved contract, skipping backup")
		if _, err := s.storage.CleanupOldBackups(ctx); err != nil {
			return fmt.Errorf("cleanup backups: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("backup: %w", err)
	}
	s.logger.Info("📦 Daily backup written", zap.String("key", key))
	return nil
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
