package core

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"flatbuild/internal/policies"
	"flatbuild/internal/ports"
	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

// PackageResolver matches package references against the package store and
// follows manifests to their transitive dependencies.
type PackageResolver struct {
	Store       ports.PackageStorePort
	Manifests   ports.ManifestPort
	Exclusions  policies.ExclusionPolicy
	Observer    ports.ResolutionObserverPort
	PackageRoot string
}

func NewPackageResolver(store ports.PackageStorePort, manifests ports.ManifestPort, exclusions policies.ExclusionPolicy, packageRoot string) PackageResolver {
	return PackageResolver{
		Store:       store,
		Manifests:   manifests,
		Exclusions:  exclusions,
		PackageRoot: packageRoot,
	}
}

// resolution carries the mutable state of one Resolve call.
type resolution struct {
	set     *types.BuildSet
	visited map[string]struct{}
	specs   specCache
}

// Resolve resolves refs for the given targets, in priority order, into
// set.Libraries and returns a snapshot of the libraries afterwards. Names
// that could not be resolved for any target are appended to
// set.Unresolved.
func (r PackageResolver) Resolve(ctx context.Context, refs []types.PackageReference, targets []string, set *types.BuildSet) []types.ResolvedLibrary {
	if set == nil || r.Store == nil {
		return nil
	}
	state := &resolution{
		set:     set,
		visited: map[string]struct{}{},
		specs:   specCache{},
	}
	r.resolveBatch(ctx, state, refs, targets)
	log.Ctx(ctx).Debug().
		Int("requested", len(refs)).
		Int("libraries", len(set.Libraries)).
		Msg("package resolution completed")
	return append([]types.ResolvedLibrary(nil), set.Libraries...)
}

func (r PackageResolver) resolveBatch(ctx context.Context, state *resolution, refs []types.PackageReference, targets []string) {
	seen := map[string]struct{}{}
	for _, ref := range refs {
		name := shared.NormalizePackageName(ref.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		r.resolveOne(ctx, state, ref, name, targets)
	}
}

func (r PackageResolver) resolveOne(ctx context.Context, state *resolution, ref types.PackageReference, name string, targets []string) {
	logger := log.Ctx(ctx)
	if r.Exclusions.Excludes(name) {
		r.observer().PackageExcluded(name)
		logger.Debug().Str("package", ref.Name).Msg("package excluded")
		return
	}
	key := name + "|" + ref.Version + "|" + strings.Join(targets, ";")
	if _, ok := state.visited[key]; ok {
		return
	}
	state.visited[key] = struct{}{}

	spec := state.specs.get(ref.Version)
	for _, target := range targets {
		lib, matched := r.matchLibrary(ctx, state, ref.Name, name, spec, target)
		actualTarget, actualVersion := target, ref.Version
		if matched {
			actualTarget, actualVersion = lib.Target, lib.Version
		}

		followed := false
		manifestDir, hasManifest := r.manifestDir(name, actualVersion, lib, matched)
		if hasManifest {
			followed = r.followManifest(ctx, state, manifestDir, ref.Name, actualTarget)
		} else if matched {
			logger.Warn().
				Str("package", ref.Name).
				Str("version", actualVersion).
				Msg("package manifest not found")
		}

		if matched {
			r.observer().PackageResolved(name, actualTarget)
			logger.Debug().
				Str("package", ref.Name).
				Str("version", actualVersion).
				Str("target", actualTarget).
				Str("path", lib.Path).
				Msg("package resolved")
			return
		}
		if followed {
			logger.Debug().
				Str("package", ref.Name).
				Str("version", actualVersion).
				Msg("package has no library, dependencies followed")
			return
		}
	}

	r.observer().PackageUnresolved(name)
	state.set.Unresolved = appendUniqueString(state.set.Unresolved, ref.Name)
	logger.Warn().
		Str("package", ref.Name).
		Str("version", ref.Version).
		Strs("targets", targets).
		Msg("package referenced not found")
}

// matchLibrary returns the first indexed library of name whose version
// satisfies spec for target, merged into the accumulator. The returned
// library is the accumulator's winner, which may be an existing entry.
func (r PackageResolver) matchLibrary(ctx context.Context, state *resolution, displayName string, name string, spec types.VersionSpec, target string) (types.ResolvedLibrary, bool) {
	for _, dir := range r.Store.LibDirs() {
		installed, ok := parseInstalledPath(dir, name)
		if !ok {
			continue
		}
		if !strings.EqualFold(installed.Target, target) && !policies.IsUniversalTarget(installed.Target) {
			continue
		}
		if !SpecMatches(spec, installed.Version) {
			continue
		}
		file, ok := r.findBinary(dir, displayName)
		if !ok {
			continue
		}
		candidate := types.ResolvedLibrary{
			Path:    shared.ToPortable(filepath.Join(dir, file), r.PackageRoot),
			Package: name,
			Version: installed.Version,
			Target:  installed.Target,
		}
		var winner types.ResolvedLibrary
		state.set.Libraries, winner = MergeLibrary(ctx, state.set.Libraries, candidate)
		return winner, true
	}
	return types.ResolvedLibrary{}, false
}

// findBinary looks up <name>.dll in dir ignoring case; store directories
// are lowercase while descriptors use display casing.
func (r PackageResolver) findBinary(dir string, name string) (string, bool) {
	files, err := r.Store.ListFiles(dir)
	if err != nil {
		return "", false
	}
	want := name + ".dll"
	for _, file := range files {
		if strings.EqualFold(file, want) {
			return file, true
		}
	}
	return "", false
}

// manifestDir finds <root>/<name>/<version>. A resolved library points at
// it directly; otherwise the manifest holder index is searched so packages
// without a library still contribute their dependencies.
func (r PackageResolver) manifestDir(name string, version string, lib types.ResolvedLibrary, matched bool) (string, bool) {
	if matched {
		return packageDirOf(shared.ExpandPortable(lib.Path, r.PackageRoot), name, version)
	}
	for _, dir := range r.Store.ManifestDirs() {
		if endsWithPackage(dir, name, version) {
			return dir, true
		}
	}
	return "", false
}

// followManifest resolves the dependency group of the manifest in dir for
// target. It reports whether such a group exists.
func (r PackageResolver) followManifest(ctx context.Context, state *resolution, dir string, name string, target string) bool {
	if r.Manifests == nil {
		return false
	}
	entry, found, err := r.Manifests.Dependencies(dir, name, target)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("package", name).Str("path", dir).Msg("package manifest unreadable")
		return false
	}
	if !found {
		return false
	}
	if len(entry.Dependencies) == 0 {
		return true
	}
	log.Ctx(ctx).Debug().
		Str("package", name).
		Str("target", target).
		Int("dependencies", len(entry.Dependencies)).
		Msg("following package manifest")
	r.resolveBatch(ctx, state, entry.Dependencies, []string{target})
	return true
}

func (r PackageResolver) observer() ports.ResolutionObserverPort {
	if r.Observer == nil {
		return noopObserver{}
	}
	return r.Observer
}

// parseInstalledPath reads a lib holder directory laid out as
// <package>/<version>/lib/<target>, or with runtime segments between the
// version and lib as in <package>/<version>/runtimes/<rid>/lib/<target>.
// The package is the segment nearest to lib that carries its name.
func parseInstalledPath(dir string, name string) (types.InstalledPackagePath, bool) {
	segments := shared.SplitPath(dir)
	n := len(segments)
	if n < 4 || !strings.EqualFold(segments[n-2], "lib") {
		return types.InstalledPackagePath{}, false
	}
	for i := n - 4; i >= 0; i-- {
		if !strings.EqualFold(segments[i], name) {
			continue
		}
		return types.InstalledPackagePath{
			Package: name,
			Version: segments[i+1],
			Target:  strings.ToLower(segments[n-1]),
			Path:    dir,
		}, true
	}
	return types.InstalledPackagePath{}, false
}

// packageDirOf climbs from a library file to its <package>/<version>
// directory.
func packageDirOf(path string, name string, version string) (string, bool) {
	dir := filepath.Dir(path)
	for {
		if endsWithPackage(dir, name, version) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func endsWithPackage(dir string, name string, version string) bool {
	segments := shared.SplitPath(dir)
	n := len(segments)
	if n < 2 {
		return false
	}
	return strings.EqualFold(segments[n-2], name) && strings.EqualFold(segments[n-1], version)
}

func appendUniqueString(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}
