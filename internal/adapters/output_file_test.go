package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatbuild/internal/types"
)

func TestOutputFileWriteScript(t *testing.T) {
	dir := t.TempDir()
	adapter := NewOutputFileAdapter(dir)

	path, err := adapter.WriteScript("build.rsp", "-o App.exe\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "build.rsp"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "-o App.exe\n", string(data))

	abs := filepath.Join(t.TempDir(), "nested", "Lib.rsp")
	path, err = adapter.WriteScript(abs, "x")
	require.NoError(t, err)
	assert.Equal(t, abs, path)
	assert.FileExists(t, abs)
}

func TestOutputFileRequiresDirForRelativeNames(t *testing.T) {
	_, err := NewOutputFileAdapter("").WriteScript("build.rsp", "")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestResolutionReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	report := types.ResolutionReport{
		Framework: "net7.0",
		Mode:      types.BuildModeTree,
		Root:      "/src/App/App.csproj",
		Units: []types.ReportUnit{
			{
				Project:    "Lib",
				Path:       "/src/Lib/Lib.csproj",
				Dependency: true,
				Artifact:   "Lib.dll",
				Libraries: []types.ResolvedLibrary{
					{Path: "|/serilog/2.10.0/lib/net5.0/Serilog.dll", Package: "serilog", Version: "2.10.0", Target: "net5.0"},
					{Path: "|/newtonsoft.json/13.0.1/lib/net6.0/Newtonsoft.Json.dll", Package: "newtonsoft.json", Version: "13.0.1", Target: "net6.0"},
				},
				Unresolved: []string{"Zeta", "Alpha"},
				Sources:    3,
			},
			{Project: "App", Path: "/src/App/App.csproj", Sources: 1, Resources: 2},
		},
	}

	path, err := NewOutputFileAdapter(dir).WriteResolutionReport("resolution.yaml", report)
	require.NoError(t, err)

	got, err := NewOutputReaderAdapter().ReadResolutionReport(path)
	require.NoError(t, err)

	want := report
	want.Units = []types.ReportUnit{report.Units[0], report.Units[1]}
	want.Units[0].Libraries = []types.ResolvedLibrary{report.Units[0].Libraries[1], report.Units[0].Libraries[0]}
	want.Units[0].Unresolved = []string{"Alpha", "Zeta"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	// input untouched
	assert.Equal(t, "Zeta", report.Units[0].Unresolved[0])
}
