package core

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/policies"
	"flatbuild/internal/ports"
	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

// GraphWalker parses a project and everything it references and collects
// the build sets for the configured topology.
type GraphWalker struct {
	Parser   ports.ProjectParserPort
	Resolver PackageResolver
	Observer ports.ResolutionObserverPort
	// Frameworks serves the Windows desktop assemblies for projects that
	// use Windows Forms or WPF.
	Frameworks ports.FrameworkLibraryPort
	Mode       types.BuildMode
	Options    types.ParseOptions
}

// WindowsDesktopFramework names the runtime pack behind UseWindowsForms and
// UseWPF.
const WindowsDesktopFramework = "microsoft.windowsdesktop.app"

func NewGraphWalker(parser ports.ProjectParserPort, resolver PackageResolver, mode types.BuildMode, opts types.ParseOptions) GraphWalker {
	return GraphWalker{
		Parser:   parser,
		Resolver: resolver,
		Mode:     mode,
		Options:  opts,
	}
}

// walkState is the accumulator shared by one Walk call.
type walkState struct {
	parsed map[string]struct{}
	built  map[string]types.BuildUnit
	units  []types.BuildUnit
	flat   *types.BuildSet
}

// Walk visits the graph rooted at rootPath depth first. Every descriptor
// is parsed at most once; a second visit contributes nothing in Flat mode
// and reuses the earlier artifact in Tree mode. The first error aborts the
// walk.
func (w GraphWalker) Walk(ctx context.Context, rootPath string) (types.WalkResult, error) {
	if w.Parser == nil {
		return types.WalkResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("graph walker requires a project parser")
	}
	started := time.Now()
	state := &walkState{
		parsed: map[string]struct{}{},
		built:  map[string]types.BuildUnit{},
	}
	result := types.WalkResult{Mode: w.Mode}
	root := canonicalPath(rootPath)

	if w.Mode.IsTree() {
		unit, err := w.walkTree(ctx, state, root, false)
		if err != nil {
			return types.WalkResult{}, err
		}
		result.Root = unit.Project
		result.Units = state.units
	} else {
		state.flat = &types.BuildSet{}
		node, _, err := w.walkFlat(ctx, state, root)
		if err != nil {
			return types.WalkResult{}, err
		}
		result.Root = node
		result.Units = []types.BuildUnit{{Project: node, Set: state.flat}}
	}

	w.observer().WalkFinished(time.Since(started))
	log.Ctx(ctx).Info().
		Str("root", result.Root.Name).
		Str("mode", string(w.Mode)).
		Int("projects", len(state.parsed)).
		Int("units", len(result.Units)).
		Msg("project graph walked")
	return result, nil
}

func (w GraphWalker) walkFlat(ctx context.Context, state *walkState, path string) (types.ProjectNode, bool, error) {
	node, fresh, err := w.visit(ctx, state, path)
	if err != nil || !fresh {
		return node, fresh, err
	}
	w.collect(ctx, node, state.flat)
	for _, child := range node.ProjectReferences {
		if _, _, err := w.walkFlat(ctx, state, canonicalPath(child)); err != nil {
			return types.ProjectNode{}, false, err
		}
	}
	return node, true, nil
}

func (w GraphWalker) walkTree(ctx context.Context, state *walkState, path string, isDependency bool) (types.BuildUnit, error) {
	key := shared.PathKey(path)
	if unit, ok := state.built[key]; ok {
		return unit, nil
	}
	node, fresh, err := w.visit(ctx, state, path)
	if err != nil {
		return types.BuildUnit{}, err
	}
	if !fresh {
		// parsed but not built yet: the reference closes a cycle
		log.Ctx(ctx).Warn().Str("project", path).Msg("project reference cycle ignored")
		return types.BuildUnit{}, nil
	}

	set := &types.BuildSet{}
	w.collect(ctx, node, set)
	for _, childPath := range node.ProjectReferences {
		child, err := w.walkTree(ctx, state, canonicalPath(childPath), true)
		if err != nil {
			log.Ctx(ctx).Error().
				Str("project", node.Name).
				Str("dependency", childPath).
				Msg("failure building dependency")
			return types.BuildUnit{}, err
		}
		if child.Artifact == "" {
			continue
		}
		set.References = appendUniqueString(set.References, child.Artifact)
		if w.Mode.Deposits() {
			for _, lib := range child.Set.Libraries {
				set.Libraries, _ = MergeLibrary(ctx, set.Libraries, lib)
			}
			for _, ref := range child.Set.References {
				set.References = appendUniqueString(set.References, ref)
			}
		}
	}

	unit := types.BuildUnit{
		Project:      node,
		Set:          set,
		IsDependency: isDependency,
	}
	if isDependency {
		unit.Artifact = node.Name + ".dll"
	}
	state.units = append(state.units, unit)
	state.built[key] = unit
	return unit, nil
}

// visit parses path unless it was parsed before in this walk. fresh is
// false for repeated visits.
func (w GraphWalker) visit(ctx context.Context, state *walkState, path string) (types.ProjectNode, bool, error) {
	key := shared.PathKey(path)
	if _, ok := state.parsed[key]; ok {
		log.Ctx(ctx).Debug().Str("project", path).Msg("project already parsed")
		return types.ProjectNode{}, false, nil
	}
	state.parsed[key] = struct{}{}

	log.Ctx(ctx).Info().Str("project", path).Msg("parsing project")
	node, err := w.Parser.Parse(ctx, path, w.Options)
	if err != nil {
		return types.ProjectNode{}, false, err
	}
	w.observer().ProjectParsed(node.Name)
	if !policies.IsCompatible(node.TargetFrameworks, w.Options.Target) {
		log.Ctx(ctx).Warn().
			Str("project", path).
			Strs("targets", node.TargetFrameworks).
			Str("requested", w.Options.Target).
			Msg("project is not compatible with the requested target")
		return types.ProjectNode{}, false, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(shared.MsgIncompatibleTarget + ": " + node.Name)
	}
	return node, true, nil
}

// collect adds the node's own items to set and resolves its packages into
// it.
func (w GraphWalker) collect(ctx context.Context, node types.ProjectNode, set *types.BuildSet) {
	set.Sources = append(set.Sources, node.Sources...)
	set.Content = append(set.Content, node.Content...)
	set.Resources = append(set.Resources, node.Resources...)
	set.NativeLibraries = append(set.NativeLibraries, node.NativeLibraries...)
	set.Args = append(set.Args, node.CompilerArgs...)
	set.LinkerArgs = append(set.LinkerArgs, node.LinkerArgs...)
	set.Constants = append(set.Constants, node.DefineConstants...)
	for _, lib := range node.Libraries {
		set.Libraries, _ = MergeLibrary(ctx, set.Libraries, types.ResolvedLibrary{Path: lib})
	}
	w.collectDesktop(ctx, node, set)
	targets := policies.CandidateTargets(node.TargetFrameworks, w.Options.Target)
	w.Resolver.Resolve(ctx, node.PackageReferences, targets, set)
}

// collectDesktop adds the Windows desktop pack. Windows Forms alone does
// not pull in the PresentationFramework assemblies.
func (w GraphWalker) collectDesktop(ctx context.Context, node types.ProjectNode, set *types.BuildSet) {
	if w.Frameworks == nil || (!node.UseWindowsForms && !node.UseWPF) {
		return
	}
	libs, err := w.Frameworks.Libraries(ctx, WindowsDesktopFramework, w.Options.Target)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("project", node.Name).Msg("failed to list desktop framework libraries")
		return
	}
	if len(libs) == 0 {
		log.Ctx(ctx).Warn().Str("project", node.Name).Msg("desktop framework pack not found in package root")
		return
	}
	for _, lib := range libs {
		if !node.UseWPF && strings.HasPrefix(filepath.Base(lib), "PresentationFramework") {
			continue
		}
		path := shared.ToPortable(lib, w.Resolver.PackageRoot)
		set.Libraries, _ = MergeLibrary(ctx, set.Libraries, types.ResolvedLibrary{Path: path})
	}
}

func (w GraphWalker) observer() ports.ResolutionObserverPort {
	if w.Observer == nil {
		return noopObserver{}
	}
	return w.Observer
}

func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
