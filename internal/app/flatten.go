package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/adapters"
	"flatbuild/internal/core"
	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

// Flatten copies the merged build set of the root project into
// <name>.flat and writes <name>.bfa there, a response file pointing at the
// copies. With All set, package and native libraries are copied as well.
func (s Service) Flatten(ctx context.Context, req FlattenRequest) (FlattenResult, error) {
	if req.Mode != "" && req.Mode != types.BuildModeFlat {
		log.Ctx(ctx).Warn().Str("mode", string(req.Mode)).Msg("flatten always merges the whole graph, ignoring mode")
	}
	req.Mode = types.BuildModeFlat
	if IsArgFile(req.ProjectPath) {
		return FlattenResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("an argument file is already flat: " + req.ProjectPath)
	}
	prepared, err := s.prepare(ctx, req.ScriptRequest)
	if err != nil {
		return FlattenResult{}, err
	}
	defer flushMetrics(ctx, prepared.metrics)

	unit := prepared.walk.Units[0]
	root := unit.Project
	home := prepared.req.Home
	dir := strings.TrimSpace(req.OutputDir)
	if dir == "" {
		dir = filepath.Join(home, root.Name+".flat")
	}
	dir = absPath(dir)
	flattener := adapters.NewFlattenDirAdapter(dir)

	set := unit.Set
	flat := &types.BuildSet{
		Args:       append(append([]string(nil), set.Args...), prepared.includeArgs...),
		LinkerArgs: set.LinkerArgs,
		Constants:  set.Constants,
	}

	sources, err := flattener.CopyInto(ctx, root.Dir, expandAll(set.Sources, home))
	if err != nil {
		return FlattenResult{}, err
	}
	flat.Sources = sources

	for _, res := range set.Resources {
		copied, err := flattener.CopyInto(ctx, root.Dir, []string{shared.ExpandPortable(res.Path, home)})
		if err != nil {
			return FlattenResult{}, err
		}
		if len(copied) == 1 {
			flat.Resources = append(flat.Resources, types.Resource{Path: copied[0], LogicalName: res.LogicalName})
		}
	}

	libraries := make([]string, 0, len(set.Libraries))
	for _, lib := range set.Libraries {
		libraries = append(libraries, shared.ExpandPortable(lib.Path, prepared.index.Root))
	}
	natives := expandAll(set.NativeLibraries, home)
	if req.All {
		if libraries, err = flattener.CopyInto(ctx, root.Dir, libraries); err != nil {
			return FlattenResult{}, err
		}
		if natives, err = flattener.CopyInto(ctx, root.Dir, natives); err != nil {
			return FlattenResult{}, err
		}
	}
	for _, lib := range libraries {
		flat.Libraries = append(flat.Libraries, types.ResolvedLibrary{Path: lib})
	}
	flat.NativeLibraries = natives

	content := core.RenderScript(types.BuildUnit{Project: root, Set: flat}, types.ScriptOptions{
		Mode:       types.BuildModeFlat,
		OutputFile: strings.TrimSpace(req.OutputFile),
		OutputKind: prepared.req.OutputKind,
	})
	script, err := adapters.NewOutputFileAdapter(dir).WriteScript(root.Name+".bfa", content)
	if err != nil {
		return FlattenResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("project", root.Name).
		Int("sources", len(flat.Sources)).
		Int("resources", len(flat.Resources)).
		Int("libraries", len(flat.Libraries)).
		Bool("copied_libraries", req.All).
		Msg("project flattened")
	return FlattenResult{
		Dir:       dir,
		Script:    script,
		Sources:   len(flat.Sources),
		Resources: len(flat.Resources),
		Libraries: len(flat.Libraries),
	}, nil
}

func expandAll(paths []string, root string) []string {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		out = append(out, shared.ExpandPortable(path, root))
	}
	return shared.UniqueStrings(out)
}
