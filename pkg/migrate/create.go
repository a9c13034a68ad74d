package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/gosimple/slug"
)

var skeleton = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.}}
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo {{.}}
-- +goose StatementEnd
`))

// Create writes an empty timestamped migration into dir and returns its path.
func Create(dir, name string, now time.Time) (string, error) {
	suffix := slugify(name)
	if suffix == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := skeleton.Execute(&body, suffix); err != nil {
		return "", err
	}
	path := filepath.Join(dir, now.UTC().Format("20060102150405")+"_"+suffix+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("%s already exists", path)
	}
	if err != nil {
		return "", err
	}
	if _, err := f.Write(body.Bytes()); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

// slugify folds name into the snake_case suffix goose filenames use.
func slugify(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}
