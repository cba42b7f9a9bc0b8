package staticfiles

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Source is a named tree of assets. Earlier sources win when paths collide.
type Source struct {
	Name string
	FS   fs.FS
}

// Result summarises one collection run.
type Result struct {
	Root       string
	Copied     int
	Unmodified int
	Ignored    int
}

func (r Result) String() string {
	return fmt.Sprintf("%d static files copied to %s, %d unmodified", r.Copied, r.Root, r.Unmodified)
}

// Collector copies static assets into a single serving directory.
type Collector struct {
	root    string
	sources []Source
	log     *zap.Logger
}

// NewCollector creates a collector writing into root.
func NewCollector(root string, sources []Source, log *zap.Logger) *Collector {
	return &Collector{root: root, sources: sources, log: log}
}

// DirSources turns STATICFILES_DIRS entries into sources. Missing directories are an error.
func DirSources(dirs []string) ([]Source, error) {
	sources := make([]Source, 0, len(dirs))
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("static dir %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("static dir %s is not a directory", dir)
		}
		sources = append(sources, Source{Name: dir, FS: os.DirFS(dir)})
	}
	return sources, nil
}

// Clear removes everything below root but keeps root itself.
func (c *Collector) Clear() error {
	abs, err := filepath.Abs(c.root)
	if err != nil {
		return err
	}
	if abs == string(filepath.Separator) {
		return errors.New("refusing to clear filesystem root")
	}

	entries, err := os.ReadDir(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", abs, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(abs, e.Name())); err != nil {
			return fmt.Errorf("failed to clear %s: %w", abs, err)
		}
	}
	c.log.Info("static root cleared", zap.String("root", abs))
	return nil
}

// Collect copies every file from every source into root. Files whose content
// already matches are left alone, so repeated runs are cheap.
func (c *Collector) Collect(ctx context.Context) (Result, error) {
	res := Result{Root: c.root}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return res, fmt.Errorf("failed to create static root: %w", err)
	}

	seen := make(map[string]string)
	for _, src := range c.sources {
		err := fs.WalkDir(src.FS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				return nil
			}
			if owner, dup := seen[path]; dup {
				res.Ignored++
				c.log.Debug("static file shadowed",
					zap.String("path", path),
					zap.String("source", src.Name),
					zap.String("kept_from", owner),
				)
				return nil
			}
			seen[path] = src.Name

			copied, err := c.copyFile(src.FS, path)
			if err != nil {
				return err
			}
			if copied {
				res.Copied++
			} else {
				res.Unmodified++
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("collect from %s: %w", src.Name, err)
		}
	}

	c.log.Info("static files collected",
		zap.String("root", c.root),
		zap.Int("copied", res.Copied),
		zap.Int("unmodified", res.Unmodified),
		zap.Int("ignored", res.Ignored),
	)
	return res, nil
}

func (c *Collector) copyFile(src fs.FS, path string) (bool, error) {
	data, err := fs.ReadFile(src, path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	dest := filepath.Join(c.root, filepath.FromSlash(path))
	if existing, err := os.ReadFile(dest); err == nil && sameContent(existing, data) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, fmt.Errorf("create dir for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".collect-*")
	if err != nil {
		return false, fmt.Errorf("create temp for %s: %w", path, err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return false, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return false, fmt.Errorf("install %s: %w", path, err)
	}
	return true, nil
}

func sameContent(a, b []byte) bool {
	return sha256.Sum256(a) == sha256.Sum256(b)
}
