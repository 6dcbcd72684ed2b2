package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/flowchartsman/retry"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/askany/cliparse"
	"github.com/danielhkuo/askany/db"
	"github.com/danielhkuo/askany/kvstore"
	"github.com/danielhkuo/askany/middleware"
	"github.com/danielhkuo/askany/retention"
	"github.com/danielhkuo/askany/router"
	"github.com/danielhkuo/askany/scheduler"
	"github.com/danielhkuo/askany/stars"
	"github.com/danielhkuo/askany/stats"
	"github.com/danielhkuo/askany/store"
)

const (
	shutdownTimeout = 10 * time.Second
	connectRetries  = 5
)

func main() {
	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Logger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliparse.Config) error {
	// Key-value store
	kv := openStore(cfg)
	defer kv.Close()

	// Archive database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := waitForDependencies(ctx, kv, dbConn); err != nil {
		return err
	}

	if err := db.CreateSchema(dbConn); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)
	archive := db.NewArchiveStore(dbConn)

	// Stats and stores
	starCache := stars.New(kv, stars.Options{Repo: cfg.StarsRepo, TTL: cfg.StarsRefresh})
	aggregator := stats.New(kv, stats.NewSnapshotFile(cfg.StatsFile),
		stats.WithStars(starCache),
		stats.WithArchive(archive),
	)
	if err := aggregator.Initialize(ctx); err != nil {
		return err
	}

	sessions := store.NewSessionStore(kv, aggregator)
	questions := store.NewQuestionStore(kv, sessions, store.NewUpvoteLedger(kv))
	retentionJob := retention.New(kv, sessions, questions, aggregator, cfg.RetentionWindow)

	// Background jobs run on their own context so shutdown can drain them.
	sched, err := scheduler.New(shutdownTimeout)
	if err != nil {
		return err
	}
	sched.Start(context.Background())
	defer sched.Stop(context.Background())

	if err := scheduleJobs(sched, cfg, retentionJob, aggregator, starCache); err != nil {
		return err
	}

	// Create router
	mux := router.NewRouter(router.Services{
		Store:     kv,
		Sessions:  sessions,
		Questions: questions,
		Stats:     aggregator,
		Stars:     starCache,
		Archive:   archive,
	})

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(cfg.CORSOrigins)(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// Wait for Ctrl-C or SIGTERM
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "store", cfg.Store)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server closed")
	sched.Stop(context.Background())

	// Persist whatever the last sync missed.
	finalCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := aggregator.SyncToFile(finalCtx); err != nil {
		slog.Error("Final stats sync failed", "error", err)
	}
	return nil
}

func openStore(cfg cliparse.Config) kvstore.Store {
	if cfg.Store == cliparse.StoreMemory {
		slog.Warn("Using in-memory store; sessions are lost on restart")
		return kvstore.NewMemoryStore()
	}
	return kvstore.NewRedisStore(kvstore.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  cfg.StoreTimeout,
	})
}

// waitForDependencies pings the store and the archive database in parallel,
// retrying with backoff while they come up.
func waitForDependencies(ctx context.Context, kv kvstore.Store, dbConn *sql.DB) error {
	retrier := retry.NewRetrier(connectRetries, 500*time.Millisecond, 5*time.Second)
	return retrier.RunContext(ctx, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := kv.Ping(ctx); err != nil {
				slog.Warn("store not ready", "error", err)
				return err
			}
			return nil
		})
		g.Go(func() error {
			if err := dbConn.PingContext(ctx); err != nil {
				slog.Warn("database not ready", "error", err)
				return err
			}
			return nil
		})
		return g.Wait()
	})
}

func scheduleJobs(sched *scheduler.Scheduler, cfg cliparse.Config, job *retention.Job, aggregator *stats.Aggregator, starCache *stars.Cache) error {
	crons := []struct {
		name string
		expr string
		task scheduler.Task
	}{
		{"retention", cfg.RetentionCron, func(ctx context.Context) error {
			_, err := job.Run(ctx)
			return err
		}},
		{"stats-sync", cfg.StatsSyncCron, aggregator.SyncToFile},
		{"daily-stats", cfg.DailyStatsCron, aggregator.RecordDaily},
	}
	for _, c := range crons {
		if err := sched.ScheduleCron(c.name, c.expr, c.task); err != nil {
			return err
		}
	}
	return sched.ScheduleEvery("github-stars", cfg.StarsRefresh, starCache.Refresh)
}
