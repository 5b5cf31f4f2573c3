package ports

import "flatbuild/internal/types"

type OutputReaderPort interface {
	ReadResolutionReport(path string) (types.ResolutionReport, error)
	// ReadArgFile returns the arguments of a response file, one per line.
	ReadArgFile(path string) ([]string, error)
}
