package adapters

import (
	"context"
	"os"
	"time"

	"flatbuild/internal/ports"
)

const defaultWaitInterval = 100 * time.Millisecond

// FileWaiterAdapter polls a path until it can be opened for reading. Some
// platforms report the compiler finished before its output is released.
type FileWaiterAdapter struct {
	Interval time.Duration
}

func NewFileWaiterAdapter() FileWaiterAdapter {
	return FileWaiterAdapter{Interval: defaultWaitInterval}
}

func (a FileWaiterAdapter) WaitReadable(ctx context.Context, path string, timeout time.Duration) bool {
	interval := a.Interval
	if interval <= 0 {
		interval = defaultWaitInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		if file, err := os.Open(path); err == nil {
			_ = file.Close()
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}

var _ ports.ArtifactWaiterPort = FileWaiterAdapter{}
