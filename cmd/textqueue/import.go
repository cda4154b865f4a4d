package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kursadbilgin/textqueue/internal/config"
	"github.com/kursadbilgin/textqueue/internal/guard"
	"github.com/kursadbilgin/textqueue/internal/infra/postgresql"
	"github.com/kursadbilgin/textqueue/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/textqueue/internal/infra/redis"
	"github.com/kursadbilgin/textqueue/internal/observability"
	"github.com/kursadbilgin/textqueue/internal/parser"
	"github.com/kursadbilgin/textqueue/internal/phone"
	"github.com/kursadbilgin/textqueue/internal/queue"
	"github.com/kursadbilgin/textqueue/internal/repository"
	"github.com/kursadbilgin/textqueue/internal/service"
)

func loadConfig() (*config.Config, error) {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	return config.Load()
}

// checkInput fails fast on a missing or unreadable export, before any
// connection is made.
func checkInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read export: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot read export: %s is a directory", path)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := checkInput(args[0]); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !dryRun {
		if err := cfg.ValidateForSubmit(); err != nil {
			return err
		}
	}

	logger, err := observability.NewLogger(observability.LoggerOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, _ = observability.NewRunContext(ctx)

	metrics := observability.NewMetrics()
	defer writeMetrics(logger, metrics)

	p := parser.New(cfg.FromNumber, phone.NewNormalizer(cfg.PhoneConfig()), observability.RunLogger(logger, ctx))

	var (
		imports     repository.ImportRepository
		importGuard guard.ImportGuard
		publisher   queue.Publisher
	)

	if !dryRun {
		db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("postgres initialization failed: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("postgres underlying db init failed: %w", err)
		}
		defer sqlDB.Close()

		if err := migrations.Migrate(db); err != nil {
			return fmt.Errorf("database migrations failed: %w", err)
		}
		importRepo := repository.NewGormImportRepo(db)
		imports = importRepo

		if cfg.RedisURL == "" {
			g, err := guard.NewHistoryGuard(importRepo, cfg.ImportGuardTTL())
			if err != nil {
				return err
			}
			importGuard = g
		} else {
			rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("redis initialization failed: %w", err)
			}
			defer rdb.Close()

			g, err := infraredis.NewRedisImportGuard(rdb, cfg.ImportGuardTTL())
			if err != nil {
				return err
			}
			importGuard = g
		}

		if cfg.RabbitMQURL != "" {
			rmq, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL, queue.SMSQueue)
			if err != nil {
				return fmt.Errorf("rabbitmq initialization failed: %w", err)
			}
			defer rmq.Close()

			pub := queue.NewRabbitMQPublisher(rmq)
			defer pub.Close()
			publisher = pub
		}
	}

	svc, err := service.NewImportService(p, imports, importGuard, publisher, logger)
	if err != nil {
		return err
	}
	svc.SetMetrics(metrics)
	svc.SetPublishTimeout(cfg.PublishTimeout())

	rep, err := svc.Run(ctx, args[0], service.RunOptions{DryRun: dryRun, Force: force})
	if err != nil {
		return err
	}

	return rep.Render(cmd.OutOrStdout())
}

func writeMetrics(logger *zap.Logger, metrics *observability.Metrics) {
	if metricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(metricsFile); err != nil {
		logger.Error("failed to write metrics", zap.String("path", metricsFile), zap.Error(err))
	}
}
