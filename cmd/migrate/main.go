package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(connect).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect loads the environment config and opens the application database.
func connect(ctx context.Context) (*sql.DB, *logger.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, nil, err
	}
	conn, err := client.DB().DB()
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	return conn, logg, func() {
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}, nil
}
