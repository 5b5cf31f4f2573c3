package ports

import (
	"context"

	"flatbuild/internal/types"
)

// PackageStorePort is the view of the package store the resolution engine
// works against.
type PackageStorePort interface {
	LibDirs() []string
	ManifestDirs() []string
	// ListFiles returns the file names (not paths) inside dir.
	ListFiles(dir string) ([]string, error)
}

// StoreScannerPort walks a package root once and classifies directories.
type StoreScannerPort interface {
	Scan(ctx context.Context, root string) (types.StoreIndex, error)
}

// StoreCachePort persists a StoreIndex as flat text files. Load reports
// false when no cache exists.
type StoreCachePort interface {
	Load(ctx context.Context, root string) (types.StoreIndex, bool, error)
	Write(ctx context.Context, index types.StoreIndex) error
}

// ManifestPort reads a package manifest and returns the dependency group
// for target. The bool is false when the manifest or the group is absent.
type ManifestPort interface {
	Dependencies(packageDir string, packageName string, target string) (types.ManifestEntry, bool, error)
}

// ExclusionSourcePort loads and persists exclusion lists.
type ExclusionSourcePort interface {
	Load(path string) ([]string, error)
	Extract(runtimeDir string) ([]string, error)
	Write(path string, names []string) error
}
