package types

// BuildSet accumulates everything one compilation unit needs.
type BuildSet struct {
	Sources         []string
	Libraries       []ResolvedLibrary
	NativeLibraries []string
	Resources       []Resource
	Content         []string
	Args            []string
	LinkerArgs      []string
	Constants       []string
	// References are artifacts of sibling units compiled earlier in Tree mode.
	References []string
	Unresolved []string
}

// BuildUnit is one project together with the set it compiles from.
type BuildUnit struct {
	Project      ProjectNode
	Set          *BuildSet
	IsDependency bool
	Artifact     string
}

// WalkResult holds units in compile order. Flat walks produce one unit.
type WalkResult struct {
	Mode  BuildMode
	Root  ProjectNode
	Units []BuildUnit
}

// ScriptOptions controls rendering of one unit.
type ScriptOptions struct {
	Mode        BuildMode
	BuildRoot   string
	PackageRoot string
	OutputFile  string
	OutputKind  OutputKind
	// ExternalLinker moves linker arguments and native libraries out of
	// the compiler script into the link script.
	ExternalLinker bool
}
