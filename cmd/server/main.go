package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/internal/bootstrap"
	"github.com/contractgen/backend/internal/config"
	"github.com/contractgen/backend/internal/domain/ports"
	"github.com/contractgen/backend/internal/infrastructure/database"
	"github.com/contractgen/backend/internal/infrastructure/persistence"
	"github.com/contractgen/backend/internal/interfaces/rest"
	"github.com/contractgen/backend/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	if envFile != "" {
		logger.Info("📄 Loaded environment file", zap.String("path", envFile))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("❌ Server stopped with error", zap.Error(err))
	}
	logger.Info("👋 Server stopped")
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("⚠️  Failed to close storage", zap.Error(err))
		}
	}()

	svcMgr, err := services.NewServiceManager(services.ManagerConfig{
		Store:         store,
		Logger:        logger,
		Locale:        cfg.Locale,
		TemplatesDir:  cfg.TemplatesDir,
		PreviewTick:   cfg.PreviewTick,
		AutosaveSpec:  cfg.AutosaveSpec,
		BackupSpec:    cfg.BackupSpec,
		RetentionDays: cfg.BackupRetentionDays,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	logger.Info("🔧 Service manager initialized")

	if err := svcMgr.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	if err := svcMgr.StartWorkers(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer svcMgr.StopWorkers()

	gin.SetMode(gin.ReleaseMode)
	router := rest.NewRouter(svcMgr, logger)

	// Debug/pprof endpoints for goroutine debugging
	// Goroutine stacks: http://localhost:3001/debug/pprof/goroutine?debug=2
	debug := router.Group("/debug/pprof")
	{
		debug.GET("/goroutine", gin.WrapH(http.DefaultServeMux))
		debug.GET("/heap", gin.WrapH(http.DefaultServeMux))
		debug.GET("/profile", gin.WrapH(http.DefaultServeMux))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("🚀 Contract generator server starting",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore builds the blob store selected by STORAGE_DRIVER
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (ports.BlobStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StorageDriver {
	case config.DriverMemory:
		logger.Warn("⚠️  Using in-memory storage; nothing survives a restart")
		return persistence.NewMemoryBlobStore(), noop, nil

	case config.DriverFile:
		store, err := persistence.NewFileBlobStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("📁 File storage ready", zap.String("dir", cfg.DataDir))
		return store, noop, nil

	case config.DriverSQLite, config.DriverMySQL:
		var (
			conn *database.Connection
			err  error
		)
		if cfg.StorageDriver == config.DriverSQLite {
			conn, err = database.OpenSQLite(cfg.SQLitePath)
		} else {
			conn, err = database.OpenMySQL(cfg.MySQL)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("✅ Database connection established", zap.String("driver", cfg.StorageDriver))

		if err := bootstrap.InitializeSchema(ctx, conn, logger); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		return persistence.NewSQLBlobStore(conn), conn.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
