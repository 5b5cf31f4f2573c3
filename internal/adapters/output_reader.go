package adapters

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"flatbuild/internal/ports"
	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

type OutputReaderAdapter struct{}

func NewOutputReaderAdapter() OutputReaderAdapter {
	return OutputReaderAdapter{}
}

func (a OutputReaderAdapter) ReadResolutionReport(path string) (types.ResolutionReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.ResolutionReport{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("resolution report not found").
			WithCause(err)
	}
	var report types.ResolutionReport
	if err := yaml.Unmarshal(content, &report); err != nil {
		return types.ResolutionReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid resolution report format").
			WithCause(err)
	}
	if report.Root == "" && len(report.Units) == 0 {
		return types.ResolutionReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resolution report has no units")
	}
	return report, nil
}

// ReadArgFile reads a .bfa or .rsp file. Each non-blank line is one
// argument; lines starting with # are comments.
func (a OutputReaderAdapter) ReadArgFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(shared.MsgArgFileNotFound + ": " + path).
			WithCause(err)
	}
	var args []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args = append(args, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read argument file: " + path).
			WithCause(err)
	}
	return args, nil
}

var _ ports.OutputReaderPort = OutputReaderAdapter{}
