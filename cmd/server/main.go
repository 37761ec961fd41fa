package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/lessonplay/internal/api"
	"github.com/vytor/lessonplay/internal/config"
	"github.com/vytor/lessonplay/internal/db"
	"github.com/vytor/lessonplay/internal/grading"
	"github.com/vytor/lessonplay/internal/jobs"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/progressclient"
	"github.com/vytor/lessonplay/internal/repository"
	"github.com/vytor/lessonplay/internal/repository/memory"
	redisrepo "github.com/vytor/lessonplay/internal/repository/redis"
	"github.com/vytor/lessonplay/internal/repository/sqlite"
	"github.com/vytor/lessonplay/internal/services"
	"github.com/vytor/lessonplay/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("LessonPlay Server Starting")
	log.Info("===========================================")
	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("snapshot_backend=%s", cfg.SnapshotBackend)
	log.Debug("progress_api_url=%s", cfg.ProgressAPIURL)
	log.Debug("sync_interval=%s", cfg.SyncInterval())
	log.Debug("sync_worker_count=%d", cfg.SyncWorkerCount)
	log.Debug("sync_queue_size=%d", cfg.SyncQueueSize)
	log.Debug("session_idle=%s", cfg.SessionIdle())
	log.Debug("blank_edit_distance=%d", cfg.BlankEditDistance)
	log.Debug("log_level=%s", cfg.LogLevel)

	ctx, cancel := context.WithCancel(logger.NewContext(context.Background(), log))
	defer cancel()

	snapshots, closeSnapshots, err := openSnapshots(ctx, cfg)
	if err != nil {
		log.Error("failed to open snapshot store: %v", err)
		os.Exit(1)
	}
	defer closeSnapshots()

	client := progressclient.New(progressclient.Options{
		BaseURL: cfg.ProgressAPIURL,
		Token:   cfg.ProgressAPIToken,
		Timeout: cfg.ProgressAPITimeout(),
	})

	// Remote submissions run on the pool; Stop drains what is queued.
	syncPool := worker.NewPool(cfg.SyncWorkerCount, cfg.SyncQueueSize)
	syncPool.Start(ctx)

	sessions := services.NewSessionService(services.SessionDeps{
		Remote:       client,
		Queue:        jobs.NewWorkerQueue(syncPool, client),
		Snapshots:    snapshots,
		Evaluator:    grading.NewEvaluator(grading.WithBlankEditDistance(cfg.BlankEditDistance)),
		SyncInterval: cfg.SyncInterval(),
		Logger:       log,
	})

	sweeper, err := services.NewSweeper(sessions, cfg.SessionIdle(), services.DefaultSweepSchedule, log)
	if err != nil {
		log.Error("failed to schedule idle sweeper: %v", err)
		os.Exit(1)
	}
	sweeper.Start()

	srv := &api.Server{
		Sessions:    sessions,
		Snapshots:   snapshots,
		CORSOrigins: cfg.CORSOrigins,
	}

	// Configure HTTP server. No WriteTimeout: event streams stay open for the
	// whole session; JSON routes carry their own timeout.
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping idle sweeper")
	sweeper.Stop()

	// Releasing sessions ends their event streams, which lets Shutdown
	// see idle connections.
	httpServer.RegisterOnShutdown(func() {
		if err := sessions.Shutdown(shutdownCtx); err != nil {
			log.Warn("session shutdown interrupted: %v", err)
		}
	})
	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}
	// Returns once every final snapshot has been sent, so the pool is still
	// open for snapshots parked behind an in-flight submission.
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		log.Warn("session shutdown interrupted: %v", err)
	}

	log.Debug("draining sync pool (%d queued)", syncPool.QueueSize())
	syncPool.Stop()

	log.Info("===========================================")
	log.Info("LessonPlay Server Stopped")
	log.Info("===========================================")
}

// openSnapshots builds the configured local snapshot store and its closer.
func openSnapshots(ctx context.Context, cfg config.Config) (repository.SnapshotRepository, func(), error) {
	log := logger.FromContext(ctx)

	switch cfg.SnapshotBackend {
	case config.BackendSQLite:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewSnapshotRepository(database.DB), func() {
			log.Debug("closing database connection")
			_ = database.Close()
		}, nil

	case config.BackendRedis:
		client, err := redisrepo.NewClient(ctx, redisrepo.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisrepo.NewSnapshotRepository(client, cfg.SnapshotTTL()), func() {
			log.Debug("closing redis connection")
			_ = client.Close()
		}, nil

	case config.BackendMemory:
		log.Warn("using in-memory snapshot store; resume state is lost on restart")
		return memory.NewSnapshotRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
}
