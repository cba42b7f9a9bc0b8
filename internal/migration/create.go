package migration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const timestampFormat = "20060102150405"

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// Files are the paths of a newly created migration pair.
type Files struct {
	Up   string
	Down string
}

// Create writes an empty up/down pair named {timestamp}_{name} into dir.
// Existing files are never overwritten.
func Create(dir, name string, now time.Time) (Files, error) {
	slug := strings.Trim(nonWord.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return Files{}, errors.New("migration name must contain letters or digits")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("failed to create migrations dir: %w", err)
	}

	base := fmt.Sprintf("%s_%s", now.UTC().Format(timestampFormat), slug)
	files := Files{
		Up:   filepath.Join(dir, base+".up.sql"),
		Down: filepath.Join(dir, base+".down.sql"),
	}

	if err := writeNew(files.Up, fmt.Sprintf("-- %s: schema changes\n", slug)); err != nil {
		return Files{}, err
	}
	if err := writeNew(files.Down, fmt.Sprintf("-- %s: revert schema changes\n", slug)); err != nil {
		_ = os.Remove(files.Up)
		return Files{}, err
	}
	return files, nil
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
