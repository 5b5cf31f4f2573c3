package adapters

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/ports"
	"flatbuild/internal/types"
)

const (
	LibraryCacheFile  = "packages.cache"
	ManifestCacheFile = "nuspecs.cache"

	cacheRootHeader = "# root: "
)

// StoreCacheFileAdapter keeps the directory classification of a package
// root as two newline separated files so a later run can skip the walk.
type StoreCacheFileAdapter struct {
	Dir string
}

func NewStoreCacheFileAdapter(dir string) StoreCacheFileAdapter {
	return StoreCacheFileAdapter{Dir: dir}
}

// Load returns false when either file is missing or was written for a
// different package root. Entries whose directory no longer exists are
// dropped.
func (a StoreCacheFileAdapter) Load(ctx context.Context, root string) (types.StoreIndex, bool, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	libRoot, libs, err := readCacheFile(filepath.Join(a.Dir, LibraryCacheFile))
	if errors.Is(err, fs.ErrNotExist) {
		return types.StoreIndex{}, false, nil
	}
	if err != nil {
		return types.StoreIndex{}, false, err
	}
	manifestRoot, manifests, err := readCacheFile(filepath.Join(a.Dir, ManifestCacheFile))
	if errors.Is(err, fs.ErrNotExist) {
		return types.StoreIndex{}, false, nil
	}
	if err != nil {
		return types.StoreIndex{}, false, err
	}
	if libRoot != abs || manifestRoot != abs {
		log.Ctx(ctx).Debug().Str("cached_root", libRoot).Str("root", abs).Msg("store cache belongs to another root")
		return types.StoreIndex{}, false, nil
	}

	index := types.StoreIndex{Root: abs}
	var dropped, droppedManifests int
	index.LibDirs, dropped = existingDirs(libs)
	index.ManifestDirs, droppedManifests = existingDirs(manifests)
	if dropped+droppedManifests > 0 {
		log.Ctx(ctx).Warn().Int("entries", dropped+droppedManifests).Msg("dropping stale store cache entries")
	}
	return index, true, nil
}

func (a StoreCacheFileAdapter) Write(ctx context.Context, index types.StoreIndex) error {
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create cache directory").
			WithCause(err)
	}
	if err := writeCacheFile(filepath.Join(a.Dir, LibraryCacheFile), index.Root, index.LibDirs); err != nil {
		return err
	}
	if err := writeCacheFile(filepath.Join(a.Dir, ManifestCacheFile), index.Root, index.ManifestDirs); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("dir", a.Dir).Msg("store cache written")
	return nil
}

func readCacheFile(path string) (string, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, err
		}
		return "", nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read store cache").
			WithCause(err)
	}
	defer file.Close()

	root := ""
	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, cacheRootHeader) {
			root = strings.TrimSpace(strings.TrimPrefix(line, cacheRootHeader))
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return "", nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read store cache").
			WithCause(err)
	}
	return root, entries, nil
}

func writeCacheFile(path string, root string, entries []string) error {
	var b strings.Builder
	b.WriteString(cacheRootHeader + root + "\n")
	for _, entry := range entries {
		b.WriteString(entry)
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write store cache").
			WithCause(err)
	}
	return nil
}

func existingDirs(paths []string) ([]string, int) {
	kept := make([]string, 0, len(paths))
	dropped := 0
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			kept = append(kept, path)
			continue
		}
		dropped++
	}
	return kept, dropped
}

var _ ports.StoreCachePort = StoreCacheFileAdapter{}
