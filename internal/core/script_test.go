package core

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"flatbuild/internal/types"
)

func sampleUnit() types.BuildUnit {
	return types.BuildUnit{
		Project: types.ProjectNode{Name: "App", OutputKind: types.OutputKindExe},
		Set: &types.BuildSet{
			Sources: []string{
				"|/src/App/Program.cs",
				"/abs/Shared/Util.cs",
				"|/src/App/Program.cs",
				"|/src/App/Models/Item.cs",
			},
			Libraries: []types.ResolvedLibrary{
				{Path: "|/serilog/2.12.0/lib/net7.0/Serilog.dll", Package: "serilog"},
				{Path: "/vendor/Legacy.dll"},
			},
			NativeLibraries: []string{"|/native/libz.a"},
			Resources: []types.Resource{
				{Path: "|/src/App/logo.png", LogicalName: "logo.png"},
				{Path: "|/src/App/strings.txt", LogicalName: "App.Strings.txt"},
			},
			Args:       []string{"--arch:x64", "--ldflags \"-lm -ldl\"", "--arch:x64"},
			LinkerArgs: []string{"-entry:main"},
			Constants:  []string{"TRACE", "DEBUG", "TRACE"},
		},
	}
}

func sampleOptions() types.ScriptOptions {
	return types.ScriptOptions{
		Mode:        types.BuildModeFlat,
		BuildRoot:   "/work",
		PackageRoot: "/packages",
		OutputFile:  "app",
	}
}

func TestRenderScriptLayout(t *testing.T) {
	got := RenderScript(sampleUnit(), sampleOptions())
	want := strings.Join([]string{
		"# Project: App, Mode: flat",
		"-o app",
		"--target Exe",
		"--arch:x64",
		"-d DEBUG",
		"-d TRACE",
		"--ldflags -lm",
		"--ldflags -ldl",
		"--ldflags -entry:main",
		"/abs/Shared/Util.cs",
		"/work/src/App/Models/Item.cs",
		"/work/src/App/Program.cs",
		"-r /packages/serilog/2.12.0/lib/net7.0/Serilog.dll",
		"-r /vendor/Legacy.dll",
		`--ldflags "/work/native/libz.a"`,
		"-res /work/src/App/logo.png",
		"-res /work/src/App/strings.txt,App.Strings.txt",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected script (-want +got):\n%s", diff)
	}
}

func TestRenderScriptIsDeterministic(t *testing.T) {
	unit := sampleUnit()
	first := RenderScript(unit, sampleOptions())

	reversed := sampleUnit()
	s := reversed.Set
	for i, j := 0, len(s.Sources)-1; i < j; i, j = i+1, j-1 {
		s.Sources[i], s.Sources[j] = s.Sources[j], s.Sources[i]
	}
	s.Libraries[0], s.Libraries[1] = s.Libraries[1], s.Libraries[0]

	assert.Equal(t, first, RenderScript(unit, sampleOptions()))
	assert.Equal(t, first, RenderScript(reversed, sampleOptions()))
}

func TestRenderScriptDependencyUnit(t *testing.T) {
	unit := types.BuildUnit{
		Project:      types.ProjectNode{Name: "Core", OutputKind: types.OutputKindLibrary},
		Set:          &types.BuildSet{References: []string{"Util.dll"}},
		IsDependency: true,
		Artifact:     "Core.dll",
	}
	opts := sampleOptions()
	opts.Mode = types.BuildModeTree
	opts.OutputKind = types.OutputKindWinExe

	got := RenderScript(unit, opts)
	want := "# Project: Core, Mode: tree\n-o Core.dll\n--target Library\n-r Util.dll\n"
	assert.Equal(t, want, got)
}

func TestRenderScriptRespectsExplicitOutput(t *testing.T) {
	unit := types.BuildUnit{
		Project: types.ProjectNode{Name: "App"},
		Set:     &types.BuildSet{Args: []string{"-o:custom"}},
	}
	got := RenderScript(unit, sampleOptions())
	assert.NotContains(t, got, "-o app")
	assert.Contains(t, got, "-o:custom\n")
}

func TestRenderScriptRespectsExplicitTarget(t *testing.T) {
	unit := types.BuildUnit{
		Project: types.ProjectNode{Name: "App", OutputKind: types.OutputKindExe},
		Set:     &types.BuildSet{Args: []string{"--target WinExe"}},
	}
	got := RenderScript(unit, sampleOptions())
	assert.Equal(t, "# Project: App, Mode: flat\n-o app\n--target WinExe\n", got)
}

func TestRenderScriptExternalLinker(t *testing.T) {
	opts := sampleOptions()
	opts.ExternalLinker = true

	script := RenderScript(sampleUnit(), opts)
	assert.NotContains(t, script, "--ldflags")

	link := RenderLinkScript(sampleUnit(), "app.obj", opts)
	want := "app.obj\n-lm\n-ldl\n-entry:main\n/work/native/libz.a\n"
	assert.Equal(t, want, link)
}

func TestHasOption(t *testing.T) {
	assert.True(t, hasOption([]string{"-o out"}, "-o"))
	assert.True(t, hasOption([]string{"-O:out"}, "-o"))
	assert.True(t, hasOption([]string{"--out=x"}, "--out"))
	assert.False(t, hasOption([]string{"-os"}, "-o"))
	assert.False(t, hasOption([]string{"-o"}, "-o"))
}
