package adapters

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsFileCountsAndFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "flatbuild.prom")
	metrics := NewMetricsFileAdapter(path)

	metrics.ProjectParsed("App")
	metrics.ProjectParsed("Lib")
	metrics.PackageResolved("serilog", "net5.0")
	metrics.PackageUnresolved("missing")
	metrics.PackageExcluded("system.memory")
	metrics.PackageExcluded("system.buffers")
	metrics.CompilerInvoked(0)
	metrics.CompilerInvoked(1)
	metrics.WalkFinished(120 * time.Millisecond)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)

	require.NoError(t, metrics.Flush())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flatbuild_projects_parsed_total 2")
	assert.Contains(t, string(data), `flatbuild_packages_total{outcome="excluded"} 2`)
	assert.Contains(t, string(data), `flatbuild_compiler_invocations_total{result="failure"} 1`)
	assert.Contains(t, string(data), `flatbuild_packages_total{outcome="unresolved"} 1`)
	assert.Contains(t, string(data), "flatbuild_walk_duration_seconds_count 1")
}

func TestMetricsFileFlushWithoutPath(t *testing.T) {
	require.NoError(t, NewMetricsFileAdapter("").Flush())
}
