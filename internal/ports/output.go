package ports

import (
	"context"

	"flatbuild/internal/types"
)

type OutputPort interface {
	WriteScript(filename string, content string) (string, error)
	WriteResolutionReport(filename string, report types.ResolutionReport) (string, error)
}

// FlattenPort copies build inputs into a flattened tree.
type FlattenPort interface {
	CopyInto(ctx context.Context, base string, files []string) ([]string, error)
}
