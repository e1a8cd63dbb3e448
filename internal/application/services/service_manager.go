package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/contracttypes"
	"github.com/contractgen/backend/internal/domain/ports"
	"github.com/contractgen/backend/pkg/constants"
	"github.com/contractgen/backend/pkg/expression"
	"github.com/contractgen/backend/pkg/template"
	"github.com/contractgen/backend/pkg/validator"
)

// ManagerConfig carries the runtime settings the services need
type ManagerConfig struct {
	Store         ports.BlobStore
	Logger        *zap.Logger
	Locale        string
	TemplatesDir  string
	PreviewTick   time.Duration
	AutosaveSpec  string
	BackupSpec    string
	RetentionDays int
}

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	logger       *zap.Logger
	templatesDir string

	// Core services
	EventBus  *EventBus
	Rules     *expression.Engine
	Types     *contracttypes.Registry
	Engine    *template.Engine
	Assembler *Assembler
	Clauses   *ClauseStore
	Preview   *PreviewService
	Storage   *StorageService
	Session   *Session
	Scheduler *SchedulerService

	watcher *contracttypes.Watcher
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(cfg ManagerConfig) (*ServiceManager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Locale == "" {
		cfg.Locale = constants.DefaultLocale
	}

	sm := &ServiceManager{
		logger:       cfg.Logger,
		templatesDir: cfg.TemplatesDir,
	}

	// Initialize services in dependency order
	sm.EventBus = NewEventBus(cfg.Logger.Named("events"))
	sm.Rules = expression.NewEngine()

	types, err := contracttypes.NewRegistry(sm.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract types: %w", err)
	}
	sm.Types = types

	sm.Engine = template.NewEngine(cfg.Logger.Named("template"), cfg.Locale)
	sm.Assembler, err = NewAssembler(sm.Engine, cfg.Logger.Named("assembler"))
	if err != nil {
		return nil, err
	}

	sm.Clauses = NewClauseStore(sm.EventBus, cfg.Logger.Named("clauses"))
	sm.Preview = NewPreviewService(sm.Assembler, sm.EventBus, cfg.Logger.Named("preview"), cfg.PreviewTick)
	sm.Storage = NewStorageService(cfg.Store, sm.Types, sm.EventBus, cfg.Logger.Named("storage"), cfg.RetentionDays)

	sm.Session = NewSession(SessionDeps{
		Types:      sm.Types,
		Clauses:    sm.Clauses,
		Assembler:  sm.Assembler,
		Preview:    sm.Preview,
		Storage:    sm.Storage,
		Rules:      sm.Rules,
		Publisher:  sm.EventBus,
		Validators: validator.GetRegistry(),
		Logger:     cfg.Logger.Named("session"),
	})

	sm.Scheduler, err = NewSchedulerService(sm.Session, sm.Storage, cfg.Logger.Named("scheduler"), cfg.AutosaveSpec, cfg.BackupSpec)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// Bootstrap loads custom contract types and restores the last saved session.
// Without a saved session the default contract type is selected.
func (sm *ServiceManager) Bootstrap(ctx context.Context) error {
	restored, err := sm.Storage.RestoreCustomTypes(ctx)
	if err != nil {
		sm.logger.Warn("failed to restore custom contract types", zap.Error(err))
	}
	loaded, err := sm.Types.LoadDir(sm.templatesDir, sm.logger)
	if err != nil {
		sm.logger.Warn("failed to load contract type files", zap.String("dir", sm.templatesDir), zap.Error(err))
	}
	sm.logger.Info("📚 Contract types ready",
		zap.Int("total", len(sm.Types.List())),
		zap.Int("restored", restored),
		zap.Int("fromFiles", loaded))

	found, err := sm.Session.Restore(ctx)
	if err != nil {
		sm.logger.Warn("saved contract could not be restored", zap.Error(err))
	}
	if found {
		sm.logger.Info("📂 Restored saved contract")
		return nil
	}
	return sm.Session.SelectType(ctx, constants.DefaultContractType)
}

// StartWorkers starts the preview worker, the scheduler and the template
// directory watcher. Call this during server startup.
func (sm *ServiceManager) StartWorkers(ctx context.Context) error {
	sm.Preview.Start(ctx)
	sm.Scheduler.Start()

	if sm.templatesDir == "" {
		return nil
	}
	watcher, err := contracttypes.NewWatcher(sm.templatesDir, sm.Types, sm.logger.Named("watcher"), func(id string) {
		sm.logger.Info("📄 Contract type added from file", zap.String("id", id))
	})
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return fmt.Errorf("failed to watch %s: %w", sm.templatesDir, err)
	}
	sm.watcher = watcher
	return nil
}

// StopWorkers stops every background worker gracefully.
// Call this during server shutdown.
func (sm *ServiceManager) StopWorkers() {
	if sm.watcher != nil {
		sm.watcher.Stop()
	}
	sm.Scheduler.Stop()
	sm.Preview.Stop()
}
