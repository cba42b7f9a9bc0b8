package staticfiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"treko/web"
)

func TestCollect_CopiesAndSkipsUnchanged(t *testing.T) {
	root := filepath.Join(t.TempDir(), "staticfiles")
	src := fstest.MapFS{
		"robots.txt":  {Data: []byte("User-agent: *\n")},
		"css/app.css": {Data: []byte("body{}")},
	}
	c := NewCollector(root, []Source{{Name: "mem", FS: src}}, zaptest.NewLogger(t))

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)
	assert.Equal(t, 0, res.Unmodified)

	data, err := os.ReadFile(filepath.Join(root, "css", "app.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))

	res, err = c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Copied)
	assert.Equal(t, 2, res.Unmodified)

	src["css/app.css"] = &fstest.MapFile{Data: []byte("body{margin:0}")}
	res, err = c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Copied)
	assert.Equal(t, 1, res.Unmodified)
}

func TestCollect_FirstSourceWins(t *testing.T) {
	root := t.TempDir()
	first := fstest.MapFS{"logo.svg": {Data: []byte("first")}}
	second := fstest.MapFS{"logo.svg": {Data: []byte("second")}, "extra.js": {Data: []byte("x")}}

	c := NewCollector(root, []Source{{Name: "a", FS: first}, {Name: "b", FS: second}}, zaptest.NewLogger(t))
	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)
	assert.Equal(t, 1, res.Ignored)

	data, err := os.ReadFile(filepath.Join(root, "logo.svg"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestClear(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "old", "stale.css"), []byte("x"), 0o644))

	c := NewCollector(root, nil, zaptest.NewLogger(t))
	require.NoError(t, c.Clear())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	missing := NewCollector(filepath.Join(root, "nope"), nil, zaptest.NewLogger(t))
	assert.NoError(t, missing.Clear())
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollector(t.TempDir(), []Source{{Name: "mem", FS: fstest.MapFS{"a.txt": {Data: []byte("a")}}}}, zaptest.NewLogger(t))
	_, err := c.Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirSources(t *testing.T) {
	dir := t.TempDir()
	sources, err := DirSources([]string{dir})
	require.NoError(t, err)
	require.Len(t, sources, 1)

	_, err = DirSources([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestCollect_EmbeddedAssets(t *testing.T) {
	root := t.TempDir()
	c := NewCollector(root, []Source{{Name: "embedded", FS: web.Static()}}, zaptest.NewLogger(t))

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Copied, 3)
	assert.FileExists(t, filepath.Join(root, "openapi.json"))
}
