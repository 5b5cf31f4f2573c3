package adapters

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResolutionReportErrors(t *testing.T) {
	reader := NewOutputReaderAdapter()

	_, err := reader.ReadResolutionReport(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, bad, "units: [")
	_, err = reader.ReadResolutionReport(bad)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, empty, "framework: net7.0\n")
	_, err = reader.ReadResolutionReport(empty)
	require.Error(t, err)
}

func TestReadArgFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "App.bfa")
	writeFile(t, path, "# Project: App, Mode: flat\r\n--target Exe\n\n   -d TRACE  \n# -d SKIPPED\n-r C:\\Program Files\\lib\\X.dll\n")

	args, err := NewOutputReaderAdapter().ReadArgFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"--target Exe", "-d TRACE", `-r C:\Program Files\lib\X.dll`}, args)

	_, err = NewOutputReaderAdapter().ReadArgFile(filepath.Join(t.TempDir(), "missing.bfa"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
