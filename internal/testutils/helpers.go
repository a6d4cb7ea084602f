package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo initializes a Loam repository in a fresh temp dir and
// returns its absolute path together with the repository.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// WriteLessons writes each name/content pair into dir.
func WriteLessons(t *testing.T, dir string, lessons map[string]string) {
	t.Helper()
	for name, content := range lessons {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// CopyLessons copies the lesson files of src into a temp dir so tests can
// open a course without touching the checked-in copy.
func CopyLessons(t *testing.T, src string) string {
	t.Helper()
	entries, err := os.ReadDir(src)
	require.NoError(t, err)

	lessons := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		lessons[e.Name()] = string(data)
	}

	dir := t.TempDir()
	WriteLessons(t, dir, lessons)
	return dir
}
