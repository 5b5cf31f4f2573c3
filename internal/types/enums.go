package types

type BuildMode string

const (
	BuildModeFlat        BuildMode = "flat"
	BuildModeTree        BuildMode = "tree"
	BuildModeTreeDeposit BuildMode = "treed"
)

// IsTree reports whether every project is compiled as its own unit.
func (m BuildMode) IsTree() bool {
	return m == BuildModeTree || m == BuildModeTreeDeposit
}

// Deposits reports whether resolved package libraries travel up to ancestors.
func (m BuildMode) Deposits() bool {
	return m == BuildModeTreeDeposit
}

type Verb string

const (
	VerbScript     Verb = "script"
	VerbBuild      Verb = "build"
	VerbBuildIL    Verb = "build-il"
	VerbFlatten    Verb = "flatten"
	VerbFlattenAll Verb = "flatten-all"
)

func (v Verb) Compiles() bool {
	return v == VerbBuild || v == VerbBuildIL
}

func (v Verb) Flattens() bool {
	return v == VerbFlatten || v == VerbFlattenAll
}

type OutputKind string

const (
	OutputKindExe     OutputKind = "Exe"
	OutputKindWinExe  OutputKind = "WinExe"
	OutputKindLibrary OutputKind = "Library"
	OutputKindShared  OutputKind = "Shared"
)
