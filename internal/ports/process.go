package ports

import (
	"context"
	"time"
)

// ProcessPort spawns an external tool and returns its exit code. A non-nil
// error means the process could not be run at all.
type ProcessPort interface {
	Run(ctx context.Context, dir string, name string, args ...string) (int, error)
}

// ResourceCompilerPort turns a resource source file into a binary blob
// and returns the blob path.
type ResourceCompilerPort interface {
	Compile(ctx context.Context, source string, namespace string) (string, error)
}

// ArtifactWaiterPort polls until path can be opened for reading.
type ArtifactWaiterPort interface {
	WaitReadable(ctx context.Context, path string, timeout time.Duration) bool
}
