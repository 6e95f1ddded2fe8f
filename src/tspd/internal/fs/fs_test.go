package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMkdirAll(t *testing.T) {
	dir := t.TempDir()
	fs := New()
	err := fs.MkdirAll(filepath.Join(dir, "foo/bar"))
	assert.NoError(t, err)

	exists, err := fs.DirExists(filepath.Join(dir, "foo/bar"))
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestDirExists(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		dir := t.TempDir()
		result, err := New().DirExists(dir)
		assert.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("does not exist", func(t *testing.T) {
		dir := t.TempDir()
		result, err := New().DirExists(dir + "foo")
		assert.NoError(t, err)
		assert.False(t, result)
	})

	t.Run("is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "a.py")
		require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))
		result, err := New().DirExists(file)
		assert.NoError(t, err)
		assert.False(t, result)
	})
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"exists", file, true},
		{"does not exist", filepath.Join(dir, "b.py"), false},
		{"is a directory", dir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New().FileExists(tt.path)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestReadFileAndDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pkg"), 0o755))

	fs := New()
	content, err := fs.ReadFile(filepath.Join(dir, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))

	entries, err := fs.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.py", entries[0].Name())
	assert.True(t, entries[1].IsDir())

	_, err = fs.ReadFile(filepath.Join(dir, "missing.py"))
	assert.Error(t, err)
}

func TestWriteAndRemove(t *testing.T) {
	file := filepath.Join(t.TempDir(), "info.json")
	fs := New()

	require.NoError(t, fs.WriteFile(file, []byte("{}")))
	require.NoError(t, fs.WriteFile(file, []byte(`{"pid":"1"}`)))
	content, err := fs.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, `{"pid":"1"}`, string(content))

	require.NoError(t, fs.Remove(file))
	exists, err := fs.FileExists(file)
	assert.NoError(t, err)
	assert.False(t, exists)
	assert.Error(t, fs.Remove(file))
}
