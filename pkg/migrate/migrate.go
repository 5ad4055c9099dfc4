package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `-cmd=create` writes new files during development.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Step is one migration touched (or listed) by a Runner command.
type Step struct {
	Version   int64
	Path      string
	Applied   bool
	Direction string
	Duration  time.Duration
}

// Runner applies the reservation schema to Postgres. The migrations use
// enums, partial unique indexes and gen_random_uuid, so sqlite is not a target.
type Runner struct {
	provider *goose.Provider
}

// NewRunner reads migrations from dir, or from the copy compiled into the
// binary when dir is empty.
func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	fsys, err := source(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

func source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Exec runs up, down, redo or status.
func (r *Runner) Exec(ctx context.Context, command string) ([]Step, error) {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		return fromResults(results...), wrap("up", err)
	case "down":
		result, err := r.provider.Down(ctx)
		return fromResults(result), wrap("down", err)
	case "redo":
		down, err := r.provider.Down(ctx)
		if err != nil {
			return fromResults(down), wrap("redo", err)
		}
		up, err := r.provider.UpByOne(ctx)
		return fromResults(down, up), wrap("redo", err)
	case "status":
		statuses, err := r.provider.Status(ctx)
		if err != nil {
			return nil, wrap("status", err)
		}
		steps := make([]Step, 0, len(statuses))
		for _, st := range statuses {
			if st == nil || st.Source == nil {
				continue
			}
			steps = append(steps, Step{
				Version: st.Source.Version,
				Path:    st.Source.Path,
				Applied: st.State == goose.StateApplied,
			})
		}
		return steps, nil
	default:
		return nil, fmt.Errorf("unsupported goose command %q", command)
	}
}

// To moves the schema up or down to version (YYYYMMDDHHMMSS).
func (r *Runner) To(ctx context.Context, version string) ([]Step, error) {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}

	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := r.provider.UpTo(ctx, target)
		return fromResults(results...), wrap(fmt.Sprintf("up-to %d", target), err)
	default:
		results, err := r.provider.DownTo(ctx, target)
		return fromResults(results...), wrap(fmt.Sprintf("down-to %d", target), err)
	}
}

// Version reports the highest applied migration.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

func fromResults(results ...*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Applied:   res.Error == nil,
			Direction: res.Direction,
			Duration:  res.Duration,
		})
	}
	return steps
}

func wrap(command string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
