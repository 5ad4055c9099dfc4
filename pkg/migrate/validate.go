package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

const (
	annotationUp   = "-- +goose Up"
	annotationDown = "-- +goose Down"
)

// ValidateDir checks the migration files under dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	fsys, err := source("")
	if err != nil {
		return err
	}
	return ValidateFS(fsys)
}

// ValidateFS requires every .sql file to be named YYYYMMDDHHMMSS_name.sql with
// a unique version, and to carry an Up section that precedes its Down section.
func ValidateFS(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	versions := make(map[string]string, len(names))
	for _, name := range names {
		m := migrationNameRe.FindStringSubmatch(path.Base(name))
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := versions[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkAnnotations(name, body); err != nil {
			return err
		}
	}
	return nil
}

func checkAnnotations(name string, body []byte) error {
	upLine, downLine := 0, 0
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(text, annotationUp) && upLine == 0:
			upLine = line
		case strings.HasPrefix(text, annotationDown) && downLine == 0:
			downLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %q: %w", name, err)
	}

	switch {
	case upLine == 0:
		return fmt.Errorf("migration %q missing %q", name, annotationUp)
	case downLine == 0:
		return fmt.Errorf("migration %q missing %q", name, annotationDown)
	case downLine < upLine:
		return fmt.Errorf("migration %q declares Down before Up", name)
	}
	return nil
}
