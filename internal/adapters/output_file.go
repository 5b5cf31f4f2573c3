package adapters

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"flatbuild/internal/ports"
	"flatbuild/internal/types"
)

type OutputFileAdapter struct {
	Dir string
}

func NewOutputFileAdapter(dir string) OutputFileAdapter {
	return OutputFileAdapter{Dir: dir}
}

// WriteScript writes a response file and returns its path. An absolute
// filename is written as is.
func (a OutputFileAdapter) WriteScript(filename string, content string) (string, error) {
	path, err := a.ensurePath(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write build script").
			WithCause(err)
	}
	return path, nil
}

// WriteResolutionReport keeps unit order (compile order) and sorts the
// libraries of each unit by path.
func (a OutputFileAdapter) WriteResolutionReport(filename string, report types.ResolutionReport) (string, error) {
	path, err := a.ensurePath(filename)
	if err != nil {
		return "", err
	}
	ordered := report
	ordered.Units = make([]types.ReportUnit, len(report.Units))
	for i, unit := range report.Units {
		libs := append([]types.ResolvedLibrary(nil), unit.Libraries...)
		sort.SliceStable(libs, func(i, j int) bool {
			return libs[i].Path < libs[j].Path
		})
		unit.Libraries = libs
		unresolved := append([]string(nil), unit.Unresolved...)
		sort.Strings(unresolved)
		unit.Unresolved = unresolved
		ordered.Units[i] = unit
	}
	content, err := yaml.Marshal(ordered)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode resolution report").
			WithCause(err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write resolution report").
			WithCause(err)
	}
	return path, nil
}

func (a OutputFileAdapter) ensurePath(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create output directory").
				WithCause(err)
		}
		return filename, nil
	}
	if a.Dir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	path := filepath.Join(a.Dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return path, nil
}

var _ ports.OutputPort = OutputFileAdapter{}
