package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/court_scheduler/internal/app"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/config"
	"github.com/Freeeeeet/court_scheduler/internal/metrics"
	"github.com/Freeeeeet/court_scheduler/internal/notify"
	"github.com/Freeeeeet/court_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/court_scheduler/internal/service"
	"github.com/Freeeeeet/court_scheduler/migrations"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting court scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Scheduler stopped with error", zap.Error(err))
	}
	logger.Info("Scheduler stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	storage, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	notifier, err := newNotifier(cfg, storage, logger)
	if err != nil {
		return err
	}

	collector := metrics.New()
	services := app.NewServices(storage, app.Options{
		Clock: clock.Real{},
		Policy: service.Policy{
			CreditValidityDays: cfg.Ledger.CreditValidityDays,
			RefundCutoff:       cfg.RefundCutoff(),
			ExpiringWindow:     cfg.Scheduler.ExpiringWindow,
		},
		Notifier: notifier,
		Metrics:  collector,
	}, logger)

	ops := app.NewOpsServer(cfg.Ops.Addr, cfg.Ops.MetricsPath, collector.Handler(), storage.Health, logger)
	if err := ops.Start(); err != nil {
		return fmt.Errorf("start ops server: %w", err)
	}

	scheduler := app.NewScheduler(services.Ledger, cfg.Scheduler.SweepInterval, logger)
	scheduler.Start(ctx)

	<-ctx.Done()
	logger.Info("Shutting down...")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ops server forced to shutdown", zap.Error(err))
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.Storage, func(), error) {
	if cfg.Storage == config.DriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return app.MemoryStorage(memory.New()), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	if cfg.Database.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.Database.StatementTimeout.Milliseconds())
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	migrator, err := app.NewMigrator(pool, migrations.FS, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := migrator.Run(ctx); err != nil {
		_ = migrator.Close()
		pool.Close()
		return nil, nil, err
	}
	_ = migrator.Close()

	return app.PostgresStorage(pool, cfg.Database.TxMaxRetries, logger), pool.Close, nil
}

func newNotifier(cfg *config.Config, storage *app.Storage, logger *zap.Logger) (service.Notifier, error) {
	if cfg.Telegram.Token == "" {
		logger.Info("Telegram token not set, notifications go to the log")
		return notify.NewLog(logger), nil
	}

	b, err := bot.New(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return notify.NewTelegram(b, storage.Users, cfg.Telegram.BaseURL, logger), nil
}
