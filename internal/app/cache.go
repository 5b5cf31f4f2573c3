package app

import (
	"context"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/adapters"
)

// RefreshCache rescans the package root and rewrites the store caches.
func (s Service) RefreshCache(ctx context.Context, req CacheRefreshRequest) (CacheRefreshResult, error) {
	root := strings.TrimSpace(req.PackageRoot)
	if root == "" {
		return CacheRefreshResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package root is required")
	}
	cacheDir := strings.TrimSpace(req.CacheDir)
	if cacheDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return CacheRefreshResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to determine working directory").
				WithCause(err)
		}
		cacheDir = wd
	}
	cacheDir = absPath(cacheDir)

	index, err := s.Scanner.Scan(ctx, absPath(root))
	if err != nil {
		return CacheRefreshResult{}, err
	}
	if err := adapters.NewStoreCacheFileAdapter(cacheDir).Write(ctx, index); err != nil {
		return CacheRefreshResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("cache_dir", cacheDir).
		Int("libraries", len(index.LibDirs)).
		Int("manifests", len(index.ManifestDirs)).
		Msg("store cache refreshed")
	return CacheRefreshResult{
		CacheDir:     cacheDir,
		LibDirs:      len(index.LibDirs),
		ManifestDirs: len(index.ManifestDirs),
	}, nil
}
