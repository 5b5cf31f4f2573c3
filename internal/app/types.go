package app

import (
	"time"

	"flatbuild/internal/types"
)

type ScriptRequest struct {
	ProjectPath   string
	PackageRoot   string
	Framework     string
	Mode          types.BuildMode
	Home          string
	OutputFile    string
	OutputKind    types.OutputKind
	ScriptFile    string
	CacheDir      string
	ExclusionFile string
	RuntimeDir    string
	ResGen        string
	ReportFile    string
	MetricsFile   string
	// Includes are argument files (.bfa or .rsp) whose lines are appended
	// to the root unit.
	Includes  []string
	ExtraArgs []string
}

type ScriptResult struct {
	RootProject string
	Scripts     []string
	Report      string
	Unresolved  []string
}

type BuildRequest struct {
	ScriptRequest
	Verb           types.Verb
	Compiler       string
	Linker         string
	PreBuild       string
	PostBuild      string
	CompileTimeout time.Duration
	WaitTimeout    time.Duration
}

type BuildResult struct {
	RootProject string
	Scripts     []string
	LinkScript  string
	Report      string
}

type FlattenRequest struct {
	ScriptRequest
	All       bool
	OutputDir string
}

type FlattenResult struct {
	Dir       string
	Script    string
	Sources   int
	Resources int
	Libraries int
}

type CacheRefreshRequest struct {
	PackageRoot string
	CacheDir    string
}

type CacheRefreshResult struct {
	CacheDir     string
	LibDirs      int
	ManifestDirs int
}

type InspectRequest struct {
	ReportPath string
}

type InspectUnit struct {
	Project    string
	Dependency bool
	Artifact   string
	Packages   []string
	Unresolved []string
	Sources    int
}

type InspectResult struct {
	Framework  string
	Mode       types.BuildMode
	Root       string
	Units      []InspectUnit
	Packages   []string
	Unresolved []string
}
