package adapters

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceFindProjects(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "App", "App.csproj"), "<Project/>")
	writeFile(t, filepath.Join(root, "Lib", "Lib.CSPROJ"), "<Project/>")
	writeFile(t, filepath.Join(root, "App", "obj", "Stale.csproj"), "<Project/>")
	writeFile(t, filepath.Join(root, "App.flat", "App.csproj"), "<Project/>")
	writeFile(t, filepath.Join(root, ".git", "x.csproj"), "")

	paths, err := NewWorkspaceAdapter().FindProjects(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "App", "App.csproj"),
		filepath.Join(root, "Lib", "Lib.CSPROJ"),
	}, paths)
}

func TestWorkspaceFindProjectsEmptyRoot(t *testing.T) {
	_, err := NewWorkspaceAdapter().FindProjects("")
	require.Error(t, err)
}
