package app

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatbuild/internal/types"
)

const inspectReport = `framework: net7.0
mode: treed
root: /src/App/App.csproj
units:
  - project: Lib
    path: /src/Lib/Lib.csproj
    dependency: true
    artifact: Lib.dll
    libraries:
      - path: "|/newtonsoft.json/13.0.1/lib/netstandard2.0/Newtonsoft.Json.dll"
        package: newtonsoft.json
        version: 13.0.1
        target: netstandard2.0
    unresolved: [Missing.Package]
    sources: 1
    resources: 0
  - project: App
    path: /src/App/App.csproj
    libraries:
      - path: /opt/native/Interop.dll
      - path: "|/serilog/2.10.0/lib/net7.0/Serilog.dll"
        package: serilog
        version: 2.10.0
        target: net7.0
      - path: "|/newtonsoft.json/13.0.1/lib/netstandard2.0/Newtonsoft.Json.dll"
        package: newtonsoft.json
        version: 13.0.1
        target: netstandard2.0
    unresolved: [Other.Missing, Missing.Package]
    sources: 2
    resources: 1
`

func TestInspectSummarizesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolution.yaml")
	writeFixtureFile(t, path, inspectReport)
	service := newTestService(nil, nil)

	result, err := service.Inspect(InspectRequest{ReportPath: path})
	require.NoError(t, err)

	want := InspectResult{
		Framework: "net7.0",
		Mode:      types.BuildModeTreeDeposit,
		Root:      "/src/App/App.csproj",
		Units: []InspectUnit{
			{
				Project:    "Lib",
				Dependency: true,
				Artifact:   "Lib.dll",
				Packages:   []string{"newtonsoft.json 13.0.1 (netstandard2.0)"},
				Unresolved: []string{"Missing.Package"},
				Sources:    1,
			},
			{
				Project: "App",
				Packages: []string{
					"/opt/native/Interop.dll",
					"newtonsoft.json 13.0.1 (netstandard2.0)",
					"serilog 2.10.0 (net7.0)",
				},
				Unresolved: []string{"Missing.Package", "Other.Missing"},
				Sources:    2,
			},
		},
		Packages: []string{
			"/opt/native/Interop.dll",
			"newtonsoft.json 13.0.1 (netstandard2.0)",
			"serilog 2.10.0 (net7.0)",
		},
		Unresolved: []string{"Missing.Package", "Other.Missing"},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("inspect mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectErrors(t *testing.T) {
	service := newTestService(nil, nil)

	_, err := service.Inspect(InspectRequest{})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = service.Inspect(InspectRequest{ReportPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
