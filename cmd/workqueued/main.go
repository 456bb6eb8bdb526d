// Command workqueued wires the task queue library to PostgreSQL and runs
// it as a long-lived daemon: load configuration, set up logging, migrate
// the schema, start the Dispatcher (recovering any queues left over from
// a previous run), and block until an OS signal requests shutdown.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Grunthos/TaskQueue/internal/clock"
	"github.com/Grunthos/TaskQueue/internal/config"
	"github.com/Grunthos/TaskQueue/internal/dispatcher"
	"github.com/Grunthos/TaskQueue/internal/platform/logger"
	"github.com/Grunthos/TaskQueue/internal/platform/postgres"
	"github.com/Grunthos/TaskQueue/internal/serializer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("workqueued exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("set up logger: %w", err)
	}

	db, err := setupDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("set up database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database connection", "error", err)
		}
	}()

	if err := runMigrations(db, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	st := postgres.New(db)
	codec := serializer.NewJSONCodec()
	mgr := dispatcher.New(st, codec, clock.Real{}, log,
		dispatcher.WithRetryDefaults(
			cfg.Scheduler.DefaultRetryLimit,
			cfg.Scheduler.BaseRetryDelay,
			cfg.Scheduler.MaxRetryDelay,
		),
		dispatcher.WithWakeBuffer(cfg.Scheduler.WorkerWakeBuffer),
		dispatcher.WithPollIdleTimeout(cfg.Scheduler.PollIdleTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}

	stopCleanup := startRetentionLoop(ctx, mgr, cfg.Retention, log)
	defer stopCleanup()

	log.Info("workqueued ready")
	<-ctx.Done()

	log.Info("shutting down")
	mgr.Stop()
	log.Info("shutdown complete")
	return nil
}

// setupDatabase opens a connection pool to PostgreSQL and verifies
// connectivity with a ping before migrations or the dispatcher touch it.
func setupDatabase(cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connection established")
	return db, nil
}

// startRetentionLoop runs a background ticker that ages off old task and
// event rows on cfg.CleanupInterval, a supplemented feature: the original
// Android app ran this from a menu action, but a headless daemon has no
// menu to trigger it from.
func startRetentionLoop(ctx context.Context, mgr *dispatcher.Manager, cfg config.RetentionConfig, log *slog.Logger) func() {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := mgr.CleanupOldTasks(loopCtx, cfg.TaskRetentionDays); err != nil {
					log.Error("task retention cleanup failed", "error", err)
				}
				if err := mgr.CleanupOldEvents(loopCtx, cfg.EventRetentionDays); err != nil {
					log.Error("event retention cleanup failed", "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
