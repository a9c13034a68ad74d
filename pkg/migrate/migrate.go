package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
)

// SourceDir is where new migration files live in a checkout.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var bundled embed.FS

// Bundled returns the migrations compiled into the binary, rooted at the
// directory that holds the .sql files.
func Bundled() fs.FS {
	sub, err := fs.Sub(bundled, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source picks the on-disk directory when dir is set, else the bundled set.
func Source(dir string) fs.FS {
	if dir == "" {
		return Bundled()
	}
	return os.DirFS(dir)
}

// Step is one applied or rolled back migration.
type Step struct {
	Version   int64
	Path      string
	Direction string
	Duration  time.Duration
}

// Status reports whether a known migration has been applied.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Runner applies goose migrations against Postgres. The caller keeps
// ownership of db.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(conn *sql.DB, source fs.FS, logg *logger.Logger) (*Runner, error) {
	if conn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database handle required")
	}
	provider, err := goose.NewProvider(database.DialectPostgres, conn, source)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load migrations")
	}
	return &Runner{provider: provider, logg: logg}, nil
}

func (r *Runner) Up(ctx context.Context) ([]Step, error) {
	results, err := r.provider.Up(ctx)
	return r.steps(ctx, results), r.wrap(err, "migrate up")
}

// Down rolls back only the latest applied migration.
func (r *Runner) Down(ctx context.Context) ([]Step, error) {
	result, err := r.provider.Down(ctx)
	if errors.Is(err, goose.ErrNoNextVersion) {
		return nil, nil
	}
	if result == nil {
		return nil, r.wrap(err, "migrate down")
	}
	return r.steps(ctx, []*goose.MigrationResult{result}), r.wrap(err, "migrate down")
}

// To moves the schema up or down until version is the latest applied one.
func (r *Runner) To(ctx context.Context, version int64) ([]Step, error) {
	if version < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "version must not be negative")
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, r.wrap(err, "read schema version")
	}
	var results []*goose.MigrationResult
	switch {
	case version > current:
		results, err = r.provider.UpTo(ctx, version)
	case version < current:
		results, err = r.provider.DownTo(ctx, version)
	}
	return r.steps(ctx, results), r.wrap(err, "migrate to version")
}

// Reset rolls back every applied migration.
func (r *Runner) Reset(ctx context.Context) ([]Step, error) {
	results, err := r.provider.DownTo(ctx, 0)
	return r.steps(ctx, results), r.wrap(err, "migrate reset")
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, r.wrap(err, "migration status")
	}
	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

func (r *Runner) steps(ctx context.Context, results []*goose.MigrationResult) []Step {
	out := make([]Step, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		step := Step{Version: res.Source.Version, Path: res.Source.Path, Direction: res.Direction, Duration: res.Duration}
		out = append(out, step)
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"version":     step.Version,
			"direction":   step.Direction,
			"duration_ms": step.Duration.Milliseconds(),
		}), "migration.applied")
	}
	return out
}

func (r *Runner) wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

// AutoUp applies the bundled migrations at boot in dev when auto-migrate is on.
func AutoUp(ctx context.Context, cfg *config.Config, client *db.Client, logg *logger.Logger) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	conn, err := client.DB().DB()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unwrap sql.DB")
	}
	runner, err := NewRunner(conn, Bundled(), logg)
	if err != nil {
		return err
	}
	steps, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(steps)), "migrations.auto_up")
	return nil
}
