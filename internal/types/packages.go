package types

// PackageReference is a declared dependency. Version holds the raw spec,
// either an exact dotted version or a bracketed range.
type PackageReference struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// VersionVector is a dotted version parsed into its numeric components.
type VersionVector []int

// VersionSpec is a parsed version requirement. Exact specs have Lo equal to Hi.
type VersionSpec struct {
	Raw string
	Lo  VersionVector
	Hi  VersionVector
}

// InstalledPackagePath is one lib holder directory of the package store,
// laid out as <root>/<package>/<version>/lib/<target>.
type InstalledPackagePath struct {
	Package string
	Version string
	Target  string
	Path    string
}

type ResolvedLibrary struct {
	Path    string `yaml:"path"`
	Package string `yaml:"package,omitempty"`
	Version string `yaml:"version,omitempty"`
	Target  string `yaml:"target,omitempty"`
}

type ManifestEntry struct {
	TargetFramework string
	Dependencies    []PackageReference
}

// StoreIndex lists the lib holder and manifest holder directories found
// under a package root.
type StoreIndex struct {
	Root         string
	LibDirs      []string
	ManifestDirs []string
}
