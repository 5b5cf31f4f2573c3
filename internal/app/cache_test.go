package app

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatbuild/internal/adapters"
)

func TestRefreshCacheRewritesIndex(t *testing.T) {
	f := newFixture(t)
	cacheDir := t.TempDir()
	service := newTestService(nil, nil)

	result, err := service.RefreshCache(t.Context(), CacheRefreshRequest{PackageRoot: f.store, CacheDir: cacheDir})
	require.NoError(t, err)
	assert.Equal(t, cacheDir, result.CacheDir)
	assert.Equal(t, 4, result.LibDirs)
	assert.Equal(t, 3, result.ManifestDirs)

	// a new package only shows up after the next refresh
	writeFixtureFile(t, f.lib("serilog", "3.0.0", "lib", "net7.0", "Serilog.dll"), "")
	index, ok, err := adapters.NewStoreCacheFileAdapter(cacheDir).Load(t.Context(), f.store)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, index.LibDirs, 4)

	result, err = service.RefreshCache(t.Context(), CacheRefreshRequest{PackageRoot: f.store, CacheDir: cacheDir})
	require.NoError(t, err)
	assert.Equal(t, 5, result.LibDirs)
	assert.FileExists(t, filepath.Join(cacheDir, adapters.LibraryCacheFile))
	assert.FileExists(t, filepath.Join(cacheDir, adapters.ManifestCacheFile))
}

func TestRefreshCacheErrors(t *testing.T) {
	service := newTestService(nil, nil)

	_, err := service.RefreshCache(t.Context(), CacheRefreshRequest{CacheDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = service.RefreshCache(t.Context(), CacheRefreshRequest{
		PackageRoot: filepath.Join(t.TempDir(), "missing"),
		CacheDir:    t.TempDir(),
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
