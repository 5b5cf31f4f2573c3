// Package testutil provides shared test helpers used across integration,
// e2e, and unit test packages.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// Fixture returns the absolute path of a directory under fixtures/.
func Fixture(t *testing.T, parts ...string) string {
	t.Helper()
	return filepath.Join(append([]string{RepoRoot(t), "fixtures"}, parts...)...)
}

// CopySolution copies the sample solution into a fresh temporary build
// root so generated scripts and caches never land in the repository.
func CopySolution(t *testing.T) string {
	t.Helper()
	src := Fixture(t, "solution")
	dest := t.TempDir()
	err := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
	return dest
}

// Normalize replaces machine specific roots in generated content with
// stable placeholders and uses forward slashes.
func Normalize(content string, home string, store string) string {
	content = strings.ReplaceAll(content, store, "$(STORE)")
	content = strings.ReplaceAll(content, home, "$(SOLUTION)")
	return filepath.ToSlash(content)
}
