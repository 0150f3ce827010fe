package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/qrave1/ChatRoulette/internal/application/config"
	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/application/metric"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/postgres"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/redis"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/server"
	"github.com/qrave1/ChatRoulette/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

func runApp(parent context.Context) {
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		setupLogger(false)
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	setupLogger(cfg.Debug)

	slog.Info(
		"Running app",
		slog.Bool("debug", cfg.Debug),
		slog.String("stats_backend", cfg.StatsBackend),
	)

	statsRepo, closeStats, err := newStatsRepository(ctx, cfg)
	if err != nil {
		slog.Error("init stats backend", slog.Any(constant.Error, err))
		os.Exit(1)
	}
	defer closeStats()

	app := server.Build(cfg, statsRepo)

	statsCtx, statsCancel := context.WithCancel(context.Background())
	var statsWG sync.WaitGroup
	statsWG.Add(1)
	go func() {
		defer statsWG.Done()
		app.Stats.Run(statsCtx)
	}()

	metricSrv := metric.NewServer(func(ctx context.Context) error {
		_, err := statsRepo.Totals(ctx)
		return err
	})

	srvCh := make(chan error, 2)
	go func() {
		srvCh <- app.Echo.Start(":" + cfg.Port)
	}()
	go func() {
		srvCh <- metricSrv.Start(":" + cfg.MetricPort)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server due to context cancel")
	case err = <-srvCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error(
				"HTTP server failed",
				slog.Any(constant.Error, err),
			)
		}
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer timeoutCancel()

	if err := app.Echo.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown server", slog.Any(constant.Error, err))
	}

	if err := metricSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}

	// воркер дописывает очередь статистики перед выходом
	statsCancel()
	statsWG.Wait()
}

// newStatsRepository выбирает хранилище статистики по STATS_BACKEND
func newStatsRepository(ctx context.Context, cfg *config.Config) (usecase.StatsRepository, func(), error) {
	switch cfg.StatsBackend {
	case "postgres":
		dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return repository.NewStatsRepo(dbConn), func() { _ = dbConn.Close() }, nil

	case "redis":
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}

		return redis.NewStatsRepo(client), func() { _ = client.Close() }, nil

	case "memory":
		return memory.NewStatsRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown stats backend %q", cfg.StatsBackend)
	}
}
