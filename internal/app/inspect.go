package app

import (
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

func (s Service) Inspect(req InspectRequest) (InspectResult, error) {
	path := strings.TrimSpace(req.ReportPath)
	if path == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("report path is required")
	}
	report, err := s.OutputReader.ReadResolutionReport(path)
	if err != nil {
		return InspectResult{}, err
	}

	result := InspectResult{
		Framework: report.Framework,
		Mode:      report.Mode,
		Root:      report.Root,
	}
	var packages []string
	var unresolved []string
	for _, unit := range report.Units {
		summary := InspectUnit{
			Project:    unit.Project,
			Dependency: unit.Dependency,
			Artifact:   unit.Artifact,
			Packages:   packageLabels(unit.Libraries),
			Unresolved: sortedCopy(unit.Unresolved),
			Sources:    unit.Sources,
		}
		packages = append(packages, summary.Packages...)
		unresolved = append(unresolved, unit.Unresolved...)
		result.Units = append(result.Units, summary)
	}
	result.Packages = sortedCopy(shared.UniqueStrings(packages))
	result.Unresolved = sortedCopy(shared.UniqueStrings(unresolved))
	return result, nil
}

// packageLabels renders "name version (target)" per resolved package;
// direct libraries without a package show their path.
func packageLabels(libs []types.ResolvedLibrary) []string {
	labels := make([]string, 0, len(libs))
	for _, lib := range libs {
		if lib.Package == "" {
			labels = append(labels, lib.Path)
			continue
		}
		label := lib.Package + " " + lib.Version
		if lib.Target != "" {
			label += " (" + lib.Target + ")"
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
