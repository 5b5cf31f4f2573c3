package adapters

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/ports"
	"flatbuild/internal/types"
)

type StoreScannerAdapter struct{}

func NewStoreScannerAdapter() StoreScannerAdapter {
	return StoreScannerAdapter{}
}

// Scan walks root once. A directory whose parent is named "lib" is a
// library holder (<id>/<version>/lib/<target>, also below
// runtimes/<rid>); any other directory that
// contains a *.nuspec file is a manifest holder.
func (a StoreScannerAdapter) Scan(ctx context.Context, root string) (types.StoreIndex, error) {
	if strings.TrimSpace(root) == "" {
		return types.StoreIndex{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return types.StoreIndex{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package root not found: " + abs).
			WithCause(err)
	}

	index := types.StoreIndex{Root: abs}
	lastManifest := ""
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("skipping unreadable store entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != abs && strings.EqualFold(filepath.Base(filepath.Dir(path)), "lib") {
				index.LibDirs = append(index.LibDirs, path)
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".nuspec") {
			dir := filepath.Dir(path)
			if dir != lastManifest && !strings.EqualFold(filepath.Base(filepath.Dir(dir)), "lib") {
				index.ManifestDirs = append(index.ManifestDirs, dir)
				lastManifest = dir
			}
		}
		return nil
	})
	if err != nil {
		return types.StoreIndex{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan package root").
			WithCause(err)
	}
	log.Ctx(ctx).Debug().
		Str("root", abs).
		Int("libraries", len(index.LibDirs)).
		Int("manifests", len(index.ManifestDirs)).
		Msg("package store scanned")
	return index, nil
}

// StoreIndexAdapter serves a StoreIndex to the resolution engine. Directory
// listings are read once per directory.
type StoreIndexAdapter struct {
	Index    types.StoreIndex
	mu       sync.Mutex
	listings map[string][]string
}

func NewStoreIndexAdapter(index types.StoreIndex) *StoreIndexAdapter {
	return &StoreIndexAdapter{Index: index, listings: map[string][]string{}}
}

func (a *StoreIndexAdapter) LibDirs() []string {
	return a.Index.LibDirs
}

func (a *StoreIndexAdapter) ManifestDirs() []string {
	return a.Index.ManifestDirs
}

func (a *StoreIndexAdapter) ListFiles(dir string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if names, ok := a.listings[dir]; ok {
		return names, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to list package directory").
			WithCause(err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	a.listings[dir] = names
	return names, nil
}

var (
	_ ports.StoreScannerPort = StoreScannerAdapter{}
	_ ports.PackageStorePort = (*StoreIndexAdapter)(nil)
)
