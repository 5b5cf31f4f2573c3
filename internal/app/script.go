package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"flatbuild/internal/adapters"
	"flatbuild/internal/core"
	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

// Script walks the project graph and writes one response file per unit.
func (s Service) Script(ctx context.Context, req ScriptRequest) (ScriptResult, error) {
	prepared, err := s.prepare(ctx, req)
	if err != nil {
		return ScriptResult{}, err
	}
	defer flushMetrics(ctx, prepared.metrics)

	scripts, err := s.writeScripts(prepared, renderUnits(prepared, false, nil))
	if err != nil {
		return ScriptResult{}, err
	}
	if len(scripts) > 1 {
		log.Ctx(ctx).Info().
			Strs("scripts", scripts).
			Msg("dependency scripts must be compiled in the listed order before the root script")
	}
	report, err := s.writeReport(prepared)
	if err != nil {
		return ScriptResult{}, err
	}
	return ScriptResult{
		RootProject: prepared.walk.Root.Name,
		Scripts:     scripts,
		Report:      report,
		Unresolved:  unresolvedNames(prepared.walk),
	}, nil
}

type renderedScript struct {
	unit     types.BuildUnit
	filename string
	content  string
}

// renderUnits renders every unit in compile order. Included arguments,
// extra arguments and rootArgs are appended to the root unit only.
func renderUnits(p preparedWalk, externalLinker bool, rootArgs []string) []renderedScript {
	opts := scriptOptions(p, externalLinker)
	rendered := make([]renderedScript, 0, len(p.walk.Units))
	for _, unit := range p.walk.Units {
		filename := unit.Project.Name + ".rsp"
		if !unit.IsDependency {
			filename = p.req.ScriptFile
			args := append(append([]string(nil), p.includeArgs...), p.req.ExtraArgs...)
			unit = withArgs(unit, append(args, rootArgs...))
		}
		rendered = append(rendered, renderedScript{
			unit:     unit,
			filename: filename,
			content:  core.RenderScript(unit, opts),
		})
	}
	return rendered
}

func scriptOptions(p preparedWalk, externalLinker bool) types.ScriptOptions {
	return types.ScriptOptions{
		Mode:           p.req.Mode,
		BuildRoot:      p.req.Home,
		PackageRoot:    p.index.Root,
		OutputFile:     p.req.OutputFile,
		OutputKind:     p.req.OutputKind,
		ExternalLinker: externalLinker,
	}
}

// withArgs returns unit with a copy of its set carrying extra arguments.
func withArgs(unit types.BuildUnit, args []string) types.BuildUnit {
	if len(args) == 0 {
		return unit
	}
	set := types.BuildSet{}
	if unit.Set != nil {
		set = *unit.Set
	}
	set.Args = append(append([]string(nil), set.Args...), args...)
	unit.Set = &set
	return unit
}

func (s Service) writeScripts(p preparedWalk, rendered []renderedScript) ([]string, error) {
	output := adapters.NewOutputFileAdapter(p.req.Home)
	paths := make([]string, 0, len(rendered))
	for _, script := range rendered {
		path, err := output.WriteScript(script.filename, script.content)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s Service) writeReport(p preparedWalk) (string, error) {
	if p.req.ReportFile == "" {
		return "", nil
	}
	report := buildReport(p, s.now())
	return adapters.NewOutputFileAdapter(p.req.Home).WriteResolutionReport(p.req.ReportFile, report)
}

func buildReport(p preparedWalk, now time.Time) types.ResolutionReport {
	report := types.ResolutionReport{
		Framework: p.req.Framework,
		Mode:      p.req.Mode,
		Root:      p.walk.Root.Path,
	}
	if !now.IsZero() {
		report.GeneratedAt = now.UTC().Format(time.RFC3339)
	}
	for _, unit := range p.walk.Units {
		entry := types.ReportUnit{
			Project:    unit.Project.Name,
			Path:       unit.Project.Path,
			Dependency: unit.IsDependency,
			Artifact:   unit.Artifact,
		}
		if unit.Set != nil {
			entry.Libraries = unit.Set.Libraries
			entry.Unresolved = unit.Set.Unresolved
			entry.Sources = len(unit.Set.Sources)
			entry.Resources = len(unit.Set.Resources)
		}
		report.Units = append(report.Units, entry)
	}
	return report
}

func unresolvedNames(walk types.WalkResult) []string {
	var names []string
	for _, unit := range walk.Units {
		if unit.Set != nil {
			names = append(names, unit.Set.Unresolved...)
		}
	}
	return shared.UniqueStrings(names)
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Time{}
	}
	return s.Clock()
}
