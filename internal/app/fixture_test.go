package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flatbuild/internal/types"
)

const (
	appProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <TargetFramework>net7.0</TargetFramework>
    <DefineConstants>TRACE</DefineConstants>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Serilog.Sinks.File" Version="5.0.0" />
    <ProjectReference Include="..\Lib\Lib.csproj" />
  </ItemGroup>
</Project>
`
	libProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <OutputType>Library</OutputType>
    <TargetFramework>netstandard2.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Newtonsoft.Json" Version="13.0.1" />
    <PackageReference Include="Missing.Package" Version="1.0.0" />
  </ItemGroup>
</Project>
`
	sinksNuspec = `<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata>
    <id>Serilog.Sinks.File</id>
    <version>5.0.0</version>
    <dependencies>
      <group targetFramework="net7.0">
        <dependency id="Serilog" version="2.10.0" />
        <dependency id="System.Memory" version="4.5.5" />
      </group>
    </dependencies>
  </metadata>
</package>
`
)

type fixture struct {
	home  string
	store string
	app   string
}

func writeFixtureFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newFixture lays out a two project solution and a package store holding
// its packages.
func newFixture(t *testing.T) fixture {
	t.Helper()
	home := t.TempDir()
	store := t.TempDir()

	writeFixtureFile(t, filepath.Join(home, "App", "App.csproj"), appProject)
	writeFixtureFile(t, filepath.Join(home, "App", "Program.cs"), "class Program {}")
	writeFixtureFile(t, filepath.Join(home, "Lib", "Lib.csproj"), libProject)
	writeFixtureFile(t, filepath.Join(home, "Lib", "Util.cs"), "class Util {}")

	writeFixtureFile(t, filepath.Join(store, "serilog.sinks.file", "5.0.0", "serilog.sinks.file.nuspec"), sinksNuspec)
	writeFixtureFile(t, filepath.Join(store, "serilog.sinks.file", "5.0.0", "lib", "net7.0", "Serilog.Sinks.File.dll"), "")
	writeFixtureFile(t, filepath.Join(store, "serilog", "2.10.0", "serilog.nuspec"), "<package><metadata/></package>")
	writeFixtureFile(t, filepath.Join(store, "serilog", "2.10.0", "lib", "net7.0", "Serilog.dll"), "")
	writeFixtureFile(t, filepath.Join(store, "newtonsoft.json", "13.0.1", "newtonsoft.json.nuspec"), "<package><metadata/></package>")
	writeFixtureFile(t, filepath.Join(store, "newtonsoft.json", "13.0.1", "lib", "netstandard2.0", "Newtonsoft.Json.dll"), "")
	writeFixtureFile(t, filepath.Join(store, "system.memory", "4.5.5", "lib", "netstandard2.0", "System.Memory.dll"), "")

	return fixture{home: home, store: store, app: filepath.Join(home, "App", "App.csproj")}
}

func (f fixture) request(mode types.BuildMode) ScriptRequest {
	return ScriptRequest{
		ProjectPath: f.app,
		PackageRoot: f.store,
		Mode:        mode,
		Home:        f.home,
	}
}

func (f fixture) lib(parts ...string) string {
	return filepath.Join(append([]string{f.store}, parts...)...)
}

func (f fixture) exclude(t *testing.T, names ...string) {
	t.Helper()
	writeFixtureFile(t, filepath.Join(f.home, DefaultExclusionFile), strings.Join(names, "\n")+"\n")
}

// outputLine is the -o line of a root script without an explicit output.
func outputLine(project string) string {
	return "-o " + defaultOutputFile(project, runtime.GOOS)
}

// incrementalLine is the linker switch every parsed project carries.
func incrementalLine() string {
	if runtime.GOOS == "linux" {
		return "--ldflags -incremental:no"
	}
	return "--ldflags /INCREMENTAL:no"
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

type processCall struct {
	dir  string
	name string
	args []string
}

// fakeProcess records invocations. codes maps "<name> <first arg>" to an
// exit code.
type fakeProcess struct {
	calls []processCall
	codes map[string]int
	err   error
}

func (p *fakeProcess) Run(_ context.Context, dir string, name string, args ...string) (int, error) {
	p.calls = append(p.calls, processCall{dir: dir, name: name, args: args})
	key := name
	if len(args) > 0 {
		key += " " + args[0]
	}
	return p.codes[key], p.err
}

type fakeWaiter struct {
	paths []string
	ready bool
}

func (w *fakeWaiter) WaitReadable(_ context.Context, path string, _ time.Duration) bool {
	w.paths = append(w.paths, path)
	return w.ready
}

type fakeResources struct {
	dir     string
	sources []string
}

func (r *fakeResources) Compile(_ context.Context, source string, namespace string) (string, error) {
	r.sources = append(r.sources, source)
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(r.dir, namespace+"."+base+".resources"), nil
}

func newTestService(proc *fakeProcess, waiter *fakeWaiter) Service {
	service := NewService()
	service.Clock = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	if proc != nil {
		service.Process = proc
	}
	if waiter != nil {
		service.Waiter = waiter
	}
	return service
}
