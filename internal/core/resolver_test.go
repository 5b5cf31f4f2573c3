package core

import (
	"path"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatbuild/internal/policies"
	"flatbuild/internal/types"
)

const storeRoot = "/store"

// fakeStore indexes "<pkg>/<ver>/lib/<target>/<file>" entries below storeRoot.
type fakeStore struct {
	libs      []string
	manifests []string
	files     map[string][]string
}

func newFakeStore(entries ...string) *fakeStore {
	store := &fakeStore{files: map[string][]string{}}
	for _, entry := range entries {
		store.addLibrary(entry)
	}
	return store
}

func (s *fakeStore) addLibrary(entry string) {
	full := path.Join(storeRoot, entry)
	dir := path.Dir(full)
	if _, ok := s.files[dir]; !ok {
		s.libs = append(s.libs, dir)
	}
	s.files[dir] = append(s.files[dir], path.Base(full))
	s.addManifest(path.Dir(path.Dir(dir)))
}

func (s *fakeStore) addManifest(dir string) {
	for _, existing := range s.manifests {
		if existing == dir {
			return
		}
	}
	s.manifests = append(s.manifests, dir)
}

func (s *fakeStore) LibDirs() []string      { return s.libs }
func (s *fakeStore) ManifestDirs() []string { return s.manifests }
func (s *fakeStore) ListFiles(dir string) ([]string, error) {
	return s.files[dir], nil
}

// fakeManifests maps "<pkgdir>|<target>" to dependencies.
type fakeManifests map[string][]types.PackageReference

func (m fakeManifests) Dependencies(dir string, _ string, target string) (types.ManifestEntry, bool, error) {
	deps, ok := m[dir+"|"+target]
	if !ok {
		return types.ManifestEntry{}, false, nil
	}
	return types.ManifestEntry{TargetFramework: target, Dependencies: deps}, true, nil
}

type countingObserver struct {
	noopObserver
	resolved   []string
	unresolved []string
	excluded   []string
	parsed     []string
}

func (o *countingObserver) PackageResolved(name string, _ string) {
	o.resolved = append(o.resolved, name)
}
func (o *countingObserver) PackageUnresolved(name string) { o.unresolved = append(o.unresolved, name) }
func (o *countingObserver) PackageExcluded(name string)   { o.excluded = append(o.excluded, name) }
func (o *countingObserver) ProjectParsed(name string)     { o.parsed = append(o.parsed, name) }

func newTestResolver(store *fakeStore, manifests fakeManifests, exclusions ...string) PackageResolver {
	return NewPackageResolver(store, manifests, policies.NewExclusionPolicy(exclusions), storeRoot)
}

func libraryPathsOf(libs []types.ResolvedLibrary) []string {
	var out []string
	for _, lib := range libs {
		out = append(out, lib.Path)
	}
	return out
}

// ---------------------------------------------------------------------------
// Version selection
// ---------------------------------------------------------------------------

func TestResolvePicksExactVersion(t *testing.T) {
	store := newFakeStore(
		"foo/1.2.3/lib/net7.0/Foo.dll",
		"foo/1.4.0/lib/net7.0/Foo.dll",
	)
	set := &types.BuildSet{}

	libs := newTestResolver(store, nil).Resolve(t.Context(),
		[]types.PackageReference{{Name: "Foo", Version: "1.2.3"}},
		[]string{"net7.0"}, set)

	want := []types.ResolvedLibrary{{
		Path:    "|/foo/1.2.3/lib/net7.0/Foo.dll",
		Package: "foo",
		Version: "1.2.3",
		Target:  "net7.0",
	}}
	if diff := cmp.Diff(want, libs); diff != "" {
		t.Fatalf("unexpected libraries (-want +got):\n%s", diff)
	}
	assert.Empty(t, set.Unresolved)
}

func TestResolveFallsBackToUniversalTarget(t *testing.T) {
	store := newFakeStore("foo/1.5.0/lib/netstandard2.0/Foo.dll")
	set := &types.BuildSet{}

	libs := newTestResolver(store, nil).Resolve(t.Context(),
		[]types.PackageReference{{Name: "Foo", Version: "[1.0.0,2.0.0]"}},
		[]string{"net7.0"}, set)

	require.Len(t, libs, 1)
	assert.Equal(t, "netstandard2.0", libs[0].Target)
	assert.Equal(t, "1.5.0", libs[0].Version)
}

func TestResolveMatchesBinaryIgnoringCase(t *testing.T) {
	store := newFakeStore("newtonsoft.json/13.0.1/lib/netstandard2.0/newtonsoft.json.DLL")
	set := &types.BuildSet{}

	libs := newTestResolver(store, nil).Resolve(t.Context(),
		[]types.PackageReference{{Name: "Newtonsoft.Json", Version: "13.0.1"}},
		[]string{"net7.0"}, set)

	require.Len(t, libs, 1)
	assert.True(t, strings.HasSuffix(libs[0].Path, "newtonsoft.json.DLL"))
}

func TestResolveSkipsDirectoriesWithoutBinary(t *testing.T) {
	store := newFakeStore(
		"foo/1.0.0/lib/net7.0/_._",
		"foo/1.0.0/lib/netstandard2.0/Foo.dll",
	)
	set := &types.BuildSet{}

	libs := newTestResolver(store, nil).Resolve(t.Context(),
		[]types.PackageReference{{Name: "Foo", Version: "1.0.0"}},
		[]string{"net7.0"}, set)

	require.Len(t, libs, 1)
	assert.Equal(t, "netstandard2.0", libs[0].Target)
}

func TestResolveIgnoresOtherTargets(t *testing.T) {
	store := newFakeStore("foo/1.0.0/lib/net48/Foo.dll")
	set := &types.BuildSet{}
	observer := &countingObserver{}
	resolver := newTestResolver(store, nil)
	resolver.Observer = observer

	libs := resolver.Resolve(t.Context(),
		[]types.PackageReference{{Name: "Foo", Version: "1.0.0"}},
		[]string{"net7.0", "netstandard2.0"}, set)

	assert.Empty(t, libs)
	assert.Equal(t, []string{"Foo"}, set.Unresolved)
	assert.Equal(t, []string{"foo"}, observer.unresolved)
}

// ---------------------------------------------------------------------------
// Deduplication
// ---------------------------------------------------------------------------

func TestResolveNewestWinsAcrossCalls(t *testing.T) {
	store := newFakeStore(
		"x/1.0.0/lib/net7.0/X.dll",
		"x/2.1.0/lib/net7.0/X.dll",
	)
	resolver := newTestResolver(store, nil)
	set := &types.BuildSet{}

	resolver.Resolve(t.Context(), []types.PackageReference{{Name: "X", Version: "2.1.0"}}, []string{"net7.0"}, set)
	libs := resolver.Resolve(t.Context(), []types.PackageReference{{Name: "X", Version: "1.0.0"}}, []string{"net7.0"}, set)

	if diff := cmp.Diff([]string{"|/x/2.1.0/lib/net7.0/X.dll"}, libraryPathsOf(libs)); diff != "" {
		t.Fatalf("unexpected libraries (-want +got):\n%s", diff)
	}
}

func TestResolveIsIdempotentWithSeededSet(t *testing.T) {
	store := newFakeStore(
		"x/1.0.0/lib/net7.0/X.dll",
		"x/2.1.0/lib/net7.0/X.dll",
	)
	resolver := newTestResolver(store, nil)
	refs := []types.PackageReference{{Name: "X", Version: "[1.0.0,3.0.0]"}}
	set := &types.BuildSet{}

	first := resolver.Resolve(t.Context(), refs, []string{"net7.0"}, set)
	second := resolver.Resolve(t.Context(), refs, []string{"net7.0"}, set)

	assert.Equal(t, first, second)
	assert.Len(t, second, 1)
}

func TestResolveFirstReferenceWinsWithinBatch(t *testing.T) {
	store := newFakeStore(
		"foo/1.0.0/lib/net7.0/Foo.dll",
		"foo/2.0.0/lib/net7.0/Foo.dll",
	)
	set := &types.BuildSet{}

	libs := newTestResolver(store, nil).Resolve(t.Context(), []types.PackageReference{
		{Name: "Foo", Version: "1.0.0"},
		{Name: "foo", Version: "2.0.0"},
	}, []string{"net7.0"}, set)

	if diff := cmp.Diff([]string{"|/foo/1.0.0/lib/net7.0/Foo.dll"}, libraryPathsOf(libs)); diff != "" {
		t.Fatalf("unexpected libraries (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Exclusions
// ---------------------------------------------------------------------------

func TestResolveExclusionIsAbsolute(t *testing.T) {
	store := newFakeStore(
		"system.memory/4.5.5/lib/net7.0/System.Memory.dll",
		"system.memory/4.5.5/lib/netstandard2.0/System.Memory.dll",
		"foo/1.0.0/lib/net7.0/Foo.dll",
	)
	manifests := fakeManifests{
		storeRoot + "/foo/1.0.0|net7.0": {{Name: "System.Memory", Version: "4.5.5"}},
	}
	observer := &countingObserver{}
	resolver := newTestResolver(store, manifests, "system.memory")
	resolver.Observer = observer
	set := &types.BuildSet{}

	libs := resolver.Resolve(t.Context(), []types.PackageReference{
		{Name: "System.Memory", Version: "4.5.5"},
		{Name: "Foo", Version: "1.0.0"},
	}, []string{"net7.0", "netstandard2.0"}, set)

	for _, lib := range libs {
		assert.NotEqual(t, "system.memory", lib.Package)
	}
	assert.Len(t, libs, 1)
	assert.Equal(t, []string{"system.memory", "system.memory"}, observer.excluded)
	assert.Empty(t, set.Unresolved)
}

// ---------------------------------------------------------------------------
// Manifests
// ---------------------------------------------------------------------------

func TestResolveFollowsManifestForResolvedTarget(t *testing.T) {
	store := newFakeStore(
		"foo/1.0.0/lib/netstandard2.0/Foo.dll",
		"bar/2.0.0/lib/netstandard2.0/Bar.dll",
		"bar/2.0.0/lib/net7.0/Bar.dll",
	)
	manifests := fakeManifests{
		storeRoot + "/foo/1.0.0|netstandard2.0": {{Name: "Bar", Version: "2.0.0"}},
	}
	set := &types.BuildSet{}

	libs := newTestResolver(store, manifests).Resolve(t.Context(),
		[]types.PackageReference{{Name: "Foo", Version: "1.0.0"}},
		[]string{"net7.0"}, set)

	want := []string{
		"|/foo/1.0.0/lib/netstandard2.0/Foo.dll",
		"|/bar/2.0.0/lib/netstandard2.0/Bar.dll",
	}
	if diff := cmp.Diff(want, libraryPathsOf(libs)); diff != "" {
		t.Fatalf("unexpected libraries (-want +got):\n%s", diff)
	}
}

func TestResolveMetaPackageContributesDependencies(t *testing.T) {
	store := newFakeStore("bar/2.0.0/lib/net7.0/Bar.dll")
	store.addManifest(storeRoot + "/meta/1.0.0")
	manifests := fakeManifests{
		storeRoot + "/meta/1.0.0|net7.0": {{Name: "Bar", Version: "2.0.0"}},
	}
	set := &types.BuildSet{}

	libs := newTestResolver(store, manifests).Resolve(t.Context(),
		[]types.PackageReference{{Name: "Meta", Version: "1.0.0"}},
		[]string{"net7.0"}, set)

	assert.Equal(t, []string{"|/bar/2.0.0/lib/net7.0/Bar.dll"}, libraryPathsOf(libs))
	assert.Empty(t, set.Unresolved)
}

func TestResolveTerminatesOnManifestCycle(t *testing.T) {
	store := newFakeStore(
		"a/1.0.0/lib/net7.0/A.dll",
		"b/1.0.0/lib/net7.0/B.dll",
	)
	manifests := fakeManifests{
		storeRoot + "/a/1.0.0|net7.0": {{Name: "B", Version: "1.0.0"}},
		storeRoot + "/b/1.0.0|net7.0": {{Name: "A", Version: "1.0.0"}},
	}
	set := &types.BuildSet{}

	libs := newTestResolver(store, manifests).Resolve(t.Context(),
		[]types.PackageReference{{Name: "A", Version: "1.0.0"}},
		[]string{"net7.0"}, set)

	assert.Len(t, libs, 2)
}

func TestResolveMatchesRuntimeSpecificLibrary(t *testing.T) {
	store := newFakeStore(
		"microsoft.win32.registry/5.0.0/runtimes/win/lib/netstandard2.0/Microsoft.Win32.Registry.dll",
		"system.security.accesscontrol/5.0.0/lib/netstandard2.0/System.Security.AccessControl.dll",
	)
	manifests := fakeManifests{
		storeRoot + "/microsoft.win32.registry/5.0.0|netstandard2.0": {{Name: "System.Security.AccessControl", Version: "5.0.0"}},
	}
	set := &types.BuildSet{}

	libs := newTestResolver(store, manifests).Resolve(t.Context(),
		[]types.PackageReference{{Name: "Microsoft.Win32.Registry", Version: "5.0.0"}},
		[]string{"net7.0"}, set)

	want := []types.ResolvedLibrary{
		{
			Path:    "|/microsoft.win32.registry/5.0.0/runtimes/win/lib/netstandard2.0/Microsoft.Win32.Registry.dll",
			Package: "microsoft.win32.registry",
			Version: "5.0.0",
			Target:  "netstandard2.0",
		},
		{
			Path:    "|/system.security.accesscontrol/5.0.0/lib/netstandard2.0/System.Security.AccessControl.dll",
			Package: "system.security.accesscontrol",
			Version: "5.0.0",
			Target:  "netstandard2.0",
		},
	}
	if diff := cmp.Diff(want, libs); diff != "" {
		t.Fatalf("unexpected libraries (-want +got):\n%s", diff)
	}
	assert.Empty(t, set.Unresolved)
}

func TestParseInstalledPath(t *testing.T) {
	installed, ok := parseInstalledPath("/home/foo/.nuget/packages/foo/1.2.3/lib/NetStandard2.0", "foo")
	require.True(t, ok)
	assert.Equal(t, types.InstalledPackagePath{
		Package: "foo",
		Version: "1.2.3",
		Target:  "netstandard2.0",
		Path:    "/home/foo/.nuget/packages/foo/1.2.3/lib/NetStandard2.0",
	}, installed)

	installed, ok = parseInstalledPath("/packages/foo/4.0.1/runtimes/win-x64/lib/net7.0", "Foo")
	require.True(t, ok)
	assert.Equal(t, "4.0.1", installed.Version)
	assert.Equal(t, "net7.0", installed.Target)

	_, ok = parseInstalledPath("/packages/foo/1.2.3/ref/net7.0", "foo")
	assert.False(t, ok)
	_, ok = parseInstalledPath("/packages/bar/1.2.3/lib/net7.0", "foo")
	assert.False(t, ok)
}
