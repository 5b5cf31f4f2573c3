package app

import (
	"time"

	"flatbuild/internal/adapters"
	"flatbuild/internal/ports"
)

type Service struct {
	Parser       ports.ProjectParserPort
	Workspace    ports.WorkspacePort
	Scanner      ports.StoreScannerPort
	Manifests    ports.ManifestPort
	Exclusions   ports.ExclusionSourcePort
	Process      ports.ProcessPort
	Waiter       ports.ArtifactWaiterPort
	OutputReader ports.OutputReaderPort
	// Resources overrides the resgen adapter built from the request.
	Resources ports.ResourceCompilerPort
	// Frameworks overrides the runtime pack reader rooted at the package root.
	Frameworks ports.FrameworkLibraryPort
	Clock      func() time.Time
}

func NewService() Service {
	return Service{
		Parser:       adapters.NewProjectFileAdapter(),
		Workspace:    adapters.NewWorkspaceAdapter(),
		Scanner:      adapters.NewStoreScannerAdapter(),
		Manifests:    adapters.NewManifestFileAdapter(),
		Exclusions:   adapters.NewExclusionFileAdapter(),
		Process:      adapters.NewProcessAdapter(),
		Waiter:       adapters.NewFileWaiterAdapter(),
		OutputReader: adapters.NewOutputReaderAdapter(),
		Clock:        time.Now,
	}
}
