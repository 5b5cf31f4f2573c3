package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/adapters"
	"flatbuild/internal/core"
	"flatbuild/internal/policies"
	"flatbuild/internal/ports"
	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

const (
	DefaultFramework     = "net7.0"
	DefaultScriptFile    = "build.rsp"
	DefaultExclusionFile = "packages.exclu"
	DefaultCompiler      = "bflat"
)

// preparedWalk is a finished graph walk plus everything needed to render
// and run it.
type preparedWalk struct {
	req     ScriptRequest
	index   types.StoreIndex
	walk    types.WalkResult
	metrics *adapters.MetricsFileAdapter
	// includeArgs are read from argument files and go to the root unit.
	includeArgs []string
}

func (s Service) prepare(ctx context.Context, req ScriptRequest) (preparedWalk, error) {
	req, err := s.applyScriptDefaults(ctx, req)
	if err != nil {
		return preparedWalk{}, err
	}
	includeArgs, err := s.readIncludes(ctx, req)
	if err != nil {
		return preparedWalk{}, err
	}
	if IsArgFile(req.ProjectPath) {
		return s.prepareArgFile(ctx, req, includeArgs)
	}
	exclusions := s.loadExclusions(ctx, req)
	index, err := s.loadStoreIndex(ctx, req.PackageRoot, req.CacheDir)
	if err != nil {
		return preparedWalk{}, err
	}
	index = exclusions.FilterIndex(index)

	metrics := adapters.NewMetricsFileAdapter(req.MetricsFile)
	resolver := core.NewPackageResolver(adapters.NewStoreIndexAdapter(index), s.Manifests, exclusions, index.Root)
	resolver.Observer = metrics
	walker := core.NewGraphWalker(s.Parser, resolver, req.Mode, types.ParseOptions{
		Target:    req.Framework,
		BuildRoot: req.Home,
		GOOS:      runtime.GOOS,
	})
	walker.Observer = metrics
	walker.Frameworks = s.frameworks(index.Root)

	walk, err := walker.Walk(ctx, req.ProjectPath)
	if err != nil {
		flushMetrics(ctx, metrics)
		return preparedWalk{}, err
	}
	if strings.TrimSpace(req.OutputFile) == "" {
		req.OutputFile = defaultOutputFile(walk.Root.Name, runtime.GOOS)
	}
	prepared := preparedWalk{req: req, index: index, walk: walk, metrics: metrics, includeArgs: includeArgs}
	if err := s.compileResources(ctx, prepared); err != nil {
		flushMetrics(ctx, metrics)
		return preparedWalk{}, err
	}
	return prepared, nil
}

// prepareArgFile turns a root argument file into a single flat unit. The
// file already lists every input, so nothing is parsed or resolved.
func (s Service) prepareArgFile(ctx context.Context, req ScriptRequest, includeArgs []string) (preparedWalk, error) {
	args, err := s.outputReader().ReadArgFile(req.ProjectPath)
	if err != nil {
		return preparedWalk{}, err
	}
	if req.Mode != types.BuildModeFlat {
		log.Ctx(ctx).Warn().Str("mode", string(req.Mode)).Msg("argument file input is always built flat")
		req.Mode = types.BuildModeFlat
	}
	name := strings.TrimSuffix(filepath.Base(req.ProjectPath), filepath.Ext(req.ProjectPath))
	root := types.ProjectNode{
		Path: req.ProjectPath,
		Dir:  filepath.Dir(req.ProjectPath),
		Name: name,
	}
	if strings.TrimSpace(req.OutputFile) == "" {
		req.OutputFile = defaultOutputFile(name, runtime.GOOS)
	}
	log.Ctx(ctx).Info().
		Str("file", req.ProjectPath).
		Int("args", len(args)).
		Int("included", len(includeArgs)).
		Msg("using argument file as root input")
	return preparedWalk{
		req: req,
		walk: types.WalkResult{
			Mode:  types.BuildModeFlat,
			Root:  root,
			Units: []types.BuildUnit{{Project: root, Set: &types.BuildSet{}}},
		},
		metrics:     adapters.NewMetricsFileAdapter(req.MetricsFile),
		includeArgs: append(args, includeArgs...),
	}, nil
}

// readIncludes reads the argument files named by req.Includes, relative to
// the build root, in order.
func (s Service) readIncludes(ctx context.Context, req ScriptRequest) ([]string, error) {
	var args []string
	for _, include := range req.Includes {
		include = strings.TrimSpace(include)
		if include == "" {
			continue
		}
		if !filepath.IsAbs(include) {
			include = filepath.Join(req.Home, include)
		}
		lines, err := s.outputReader().ReadArgFile(include)
		if err != nil {
			return nil, err
		}
		log.Ctx(ctx).Debug().Str("file", include).Int("args", len(lines)).Msg("argument file included")
		args = append(args, lines...)
	}
	return args, nil
}

func (s Service) outputReader() ports.OutputReaderPort {
	if s.OutputReader != nil {
		return s.OutputReader
	}
	return adapters.NewOutputReaderAdapter()
}

// IsArgFile reports whether path names a .bfa argument file rather than a
// project descriptor.
func IsArgFile(path string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(path)), ".bfa")
}

func (s Service) frameworks(root string) ports.FrameworkLibraryPort {
	if s.Frameworks != nil {
		return s.Frameworks
	}
	return adapters.NewFrameworkPackAdapter(root, runtime.GOOS, runtime.GOARCH)
}

func (s Service) applyScriptDefaults(ctx context.Context, req ScriptRequest) (ScriptRequest, error) {
	argFile := IsArgFile(req.ProjectPath)
	if strings.TrimSpace(req.PackageRoot) == "" && !argFile {
		return req, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package root is required")
	}
	home := strings.TrimSpace(req.Home)
	if home == "" {
		wd, err := os.Getwd()
		if err != nil {
			return req, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to determine working directory").
				WithCause(err)
		}
		home = wd
	}
	req.Home = absPath(home)
	if strings.TrimSpace(req.PackageRoot) != "" {
		req.PackageRoot = absPath(req.PackageRoot)
	}

	switch req.Mode {
	case "":
		req.Mode = types.BuildModeFlat
	case types.BuildModeFlat, types.BuildModeTree, types.BuildModeTreeDeposit:
	default:
		return req, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown build mode " + string(req.Mode) + " (expected flat, tree or treed)")
	}
	if req.OutputKind != "" {
		kind, ok := parseOutputKind(string(req.OutputKind))
		if !ok {
			return req, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("unknown output kind " + string(req.OutputKind))
		}
		req.OutputKind = kind
	}

	req.Framework = strings.ToLower(strings.TrimSpace(req.Framework))
	if req.Framework == "" {
		req.Framework = DefaultFramework
	}
	if strings.TrimSpace(req.ScriptFile) == "" {
		req.ScriptFile = DefaultScriptFile
	}
	if strings.TrimSpace(req.CacheDir) == "" {
		req.CacheDir = req.Home
	}
	req.CacheDir = absPath(req.CacheDir)
	if strings.TrimSpace(req.ExclusionFile) == "" {
		req.ExclusionFile = DefaultExclusionFile
	}
	if !filepath.IsAbs(req.ExclusionFile) {
		req.ExclusionFile = filepath.Join(req.Home, req.ExclusionFile)
	}

	projectPath := strings.TrimSpace(req.ProjectPath)
	if projectPath == "" {
		discovered, err := s.discoverProject(ctx, req.Home)
		if err != nil {
			return req, err
		}
		projectPath = discovered
	}
	req.ProjectPath = absPath(projectPath)
	return req, nil
}

// discoverProject picks the first descriptor directly inside home.
func (s Service) discoverProject(ctx context.Context, home string) (string, error) {
	if s.Workspace == nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("project path is required")
	}
	paths, err := s.Workspace.FindProjects(home)
	if err != nil {
		return "", err
	}
	var local []string
	for _, path := range paths {
		if filepath.Dir(path) == home {
			local = append(local, path)
		}
	}
	if len(local) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(shared.MsgDescriptorNotFound + " in " + home)
	}
	sort.Strings(local)
	if len(local) > 1 {
		log.Ctx(ctx).Warn().Strs("projects", local).Str("using", local[0]).Msg("several project descriptors found")
	}
	return local[0], nil
}

// loadExclusions merges the general exclusion file with the framework one,
// deriving the framework list from the runtime directory on first use.
func (s Service) loadExclusions(ctx context.Context, req ScriptRequest) policies.ExclusionPolicy {
	if s.Exclusions == nil {
		return policies.NewExclusionPolicy()
	}
	base, err := s.Exclusions.Load(req.ExclusionFile)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("file", req.ExclusionFile).Msg("ignoring exclusion file")
	}
	frameworkFile := filepath.Join(req.CacheDir, req.Framework+".exclu")
	framework, err := s.Exclusions.Load(frameworkFile)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("file", frameworkFile).Msg("ignoring exclusion file")
	}
	if len(framework) == 0 && strings.TrimSpace(req.RuntimeDir) != "" {
		framework, err = s.Exclusions.Extract(req.RuntimeDir)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("runtime_dir", req.RuntimeDir).Msg("failed to derive framework exclusions")
		} else if err := s.Exclusions.Write(frameworkFile, framework); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("file", frameworkFile).Msg("failed to write framework exclusions")
		}
	}
	policy := policies.NewExclusionPolicy(base, framework)
	log.Ctx(ctx).Debug().Int("exclusions", len(policy.Names())).Msg("exclusions loaded")
	return policy
}

// loadStoreIndex reads the store cache and falls back to a full scan,
// writing the cache afterwards.
func (s Service) loadStoreIndex(ctx context.Context, root string, cacheDir string) (types.StoreIndex, error) {
	cache := adapters.NewStoreCacheFileAdapter(cacheDir)
	index, ok, err := cache.Load(ctx, root)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("ignoring unreadable store cache")
	}
	if ok {
		log.Ctx(ctx).Debug().Int("libraries", len(index.LibDirs)).Msg("store cache loaded")
		return index, nil
	}
	index, err = s.Scanner.Scan(ctx, root)
	if err != nil {
		return types.StoreIndex{}, err
	}
	if err := cache.Write(ctx, index); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to write store cache")
	}
	return index, nil
}

// compileResources swaps .resx resources for compiled blobs when a
// resource compiler is configured.
func (s Service) compileResources(ctx context.Context, p preparedWalk) error {
	compiler := s.Resources
	if compiler == nil {
		if strings.TrimSpace(p.req.ResGen) == "" {
			return nil
		}
		compiler = adapters.NewResGenAdapter(p.req.ResGen, filepath.Join(p.req.CacheDir, "resources"))
	}
	for _, unit := range p.walk.Units {
		if unit.Set == nil {
			continue
		}
		for i, res := range unit.Set.Resources {
			if !strings.EqualFold(filepath.Ext(res.Path), ".resx") {
				continue
			}
			source := shared.ExpandPortable(res.Path, p.req.Home)
			blob, err := compiler.Compile(ctx, source, unit.Project.Name)
			if err != nil {
				return err
			}
			unit.Set.Resources[i] = types.Resource{Path: blob, LogicalName: res.LogicalName}
		}
	}
	return nil
}

// defaultOutputFile names the root artifact after the project, with the
// executable suffix on Windows.
func defaultOutputFile(project string, goos string) string {
	if goos == "windows" {
		return project + ".exe"
	}
	return project
}

func parseOutputKind(value string) (types.OutputKind, bool) {
	for _, kind := range []types.OutputKind{types.OutputKindExe, types.OutputKindWinExe, types.OutputKindLibrary, types.OutputKindShared} {
		if strings.EqualFold(strings.TrimSpace(value), string(kind)) {
			return kind, true
		}
	}
	return "", false
}

func absPath(path string) string {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func flushMetrics(ctx context.Context, metrics *adapters.MetricsFileAdapter) {
	if metrics == nil {
		return
	}
	if err := metrics.Flush(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to write metrics")
	}
}
