package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/uniformhub-backend/internal/adminnotifications"
	"github.com/angelmondragon/uniformhub-backend/internal/notifications"
	"github.com/angelmondragon/uniformhub-backend/internal/retention"
	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
	"github.com/angelmondragon/uniformhub-backend/pkg/migrate"
	"github.com/angelmondragon/uniformhub-backend/pkg/redis"
)

func main() {
	_ = godotenv.Load()

	var once bool
	var metricsAddr string
	cmd := &cobra.Command{
		Use:           "retention-worker",
		Short:         "Purge read notifications past the retention window",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, once, metricsAddr)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single purge cycle and exit")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9102", "address serving /metrics; empty disables it")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, once bool, metricsAddr string) error {
	logg := logger.New(logger.Options{
		ServiceName: "retention-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer closeQuietly(logg, "database", dbClient.Close)

	if err := migrate.AutoUp(ctx, cfg, dbClient, logg); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer closeQuietly(logg, "redis", redisClient.Close)

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := retention.NewRedisLock(redisClient, redisClient.LockKey("retention:"+env), 0)
	if err != nil {
		return err
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	conn := dbClient.DB()
	var jobs []retention.Job
	for _, target := range []struct {
		name   string
		purger retention.ReadPurger
	}{
		{"read-notifications", notifications.NewRepository(conn)},
		{"read-admin-notifications", adminnotifications.NewRepository(conn)},
	} {
		job, err := retention.NewPurgeJob(retention.PurgeJobParams{
			Name:    target.name,
			Logger:  logg,
			Purger:  target.purger,
			Days:    cfg.Retention.Days,
			Metrics: jobMetrics,
		})
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	worker, err := retention.NewWorker(retention.WorkerParams{
		Logger:   logg,
		Jobs:     jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Retention.Interval,
	})
	if err != nil {
		return err
	}

	if once {
		return worker.RunOnce(ctx)
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics listener stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"interval": cfg.Retention.Interval.String(),
		"days":     cfg.Retention.Days,
	}), "retention.worker_started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "retention.worker_stopped")
	return nil
}

func closeQuietly(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
