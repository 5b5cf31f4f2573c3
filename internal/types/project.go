package types

type Resource struct {
	Path        string
	LogicalName string
}

// ProjectNode is one parsed project descriptor. File paths are absolute
// unless the parser was given a build root, in which case sources,
// resources and content are expressed against the path placeholder.
type ProjectNode struct {
	Path              string
	Dir               string
	Name              string
	OutputKind        OutputKind
	TargetFrameworks  []string
	Sources           []string
	Content           []string
	Resources         []Resource
	NativeLibraries   []string
	Libraries         []string
	PackageReferences []PackageReference
	ProjectReferences []string
	DefineConstants   []string
	CompilerArgs      []string
	LinkerArgs        []string
	UseWindowsForms   bool
	UseWPF            bool
}

type ParseOptions struct {
	// Target is the framework moniker used when the descriptor declares none.
	Target string
	// BuildRoot, when set, is replaced by the path placeholder in file items.
	BuildRoot string
	// GOOS selects the linker flag dialect.
	GOOS string
}
