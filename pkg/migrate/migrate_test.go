package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestBundledMigrationsAreValid(t *testing.T) {
	require.NoError(t, Validate(Bundled()))
	require.NoError(t, Validate(Source("migrations")))
}

func TestBundledMigrationsCreateEveryTable(t *testing.T) {
	var schema strings.Builder
	require.NoError(t, fs.WalkDir(Bundled(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		body, err := fs.ReadFile(Bundled(), path)
		schema.Write(body)
		return err
	}))

	sql := schema.String()
	for _, table := range []string{
		"users", "categories", "schools", "products", "orders", "payments",
		"inventory_logs", "admin_notifications", "user_notifications",
		"admin_todos", "sizing_appointments", "contact_queries",
	} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
		assert.Contains(t, sql, "DROP TABLE IF EXISTS "+table+";", table)
	}
	assert.Contains(t, sql, "CHECK (change <> 0)")
	assert.Contains(t, sql, "CONSTRAINT users_subject_key UNIQUE (subject)")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	ok := []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	source := fstest.MapFS{
		"add_users.sql":             {Data: ok},
		"20260101000000_users.sql":  {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"20260101000000_orders.sql": {Data: ok},
		"20260101000001_twice.sql":  {Data: append(ok, ok...)},
		"README.md":                 {Data: []byte("ignored")},
	}

	err := Validate(source)
	require.Error(t, err)
	problems := multierr.Errors(err)
	assert.Len(t, problems, 4)
	assert.ErrorContains(t, err, "add_users.sql: name must look like")
	assert.ErrorContains(t, err, "already used by")
	assert.ErrorContains(t, err, "found 1 and 0")
	assert.ErrorContains(t, err, "found 2 and 2")

	assert.ErrorContains(t, Validate(fstest.MapFS{}), "no migrations found")
}

func TestCreateWritesValidSkeleton(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	path, err := Create(dir, "  Add Fitting-Room bookings! ", at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260402093000_add_fitting_room_bookings.sql"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- undo add_fitting_room_bookings")
	require.NoError(t, Validate(os.DirFS(dir)))

	_, err = Create(dir, "add fitting room bookings", at)
	assert.ErrorContains(t, err, "already exists")

	_, err = Create(dir, "!!!", at)
	assert.Error(t, err)
}
