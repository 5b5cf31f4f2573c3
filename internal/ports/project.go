package ports

import (
	"context"

	"flatbuild/internal/types"
)

// ProjectParserPort reads one project descriptor into a ProjectNode.
type ProjectParserPort interface {
	Parse(ctx context.Context, path string, opts types.ParseOptions) (types.ProjectNode, error)
}

// WorkspacePort discovers project descriptors below a directory.
type WorkspacePort interface {
	FindProjects(root string) ([]string, error)
}

// FrameworkLibraryPort lists the assemblies of a shared framework pack,
// such as the Windows desktop runtime, for a target framework.
type FrameworkLibraryPort interface {
	Libraries(ctx context.Context, framework string, target string) ([]string, error)
}
