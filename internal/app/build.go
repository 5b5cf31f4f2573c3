package app

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/adapters"
	"flatbuild/internal/core"
	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

const (
	DefaultWaitTimeout = 10 * time.Second
	linkScriptFile     = "link.rsp"
)

// Build writes the unit scripts and compiles them in order. Dependency
// units of a tree walk are compiled to IL first; the root unit uses the
// requested verb and, with an external linker, is linked afterwards.
func (s Service) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	if req.Verb == "" {
		req.Verb = types.VerbBuild
	}
	if !req.Verb.Compiles() {
		return BuildResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("verb " + string(req.Verb) + " does not compile")
	}
	if strings.TrimSpace(req.Compiler) == "" {
		req.Compiler = DefaultCompiler
	}
	if req.WaitTimeout <= 0 {
		req.WaitTimeout = DefaultWaitTimeout
	}
	if s.Process == nil {
		return BuildResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no process runner configured")
	}

	prepared, err := s.prepare(ctx, req.ScriptRequest)
	if err != nil {
		return BuildResult{}, err
	}
	defer flushMetrics(ctx, prepared.metrics)
	home := prepared.req.Home
	externalLinker := strings.TrimSpace(req.Linker) != ""

	if err := s.runAction(ctx, home, req.PreBuild); err != nil {
		return BuildResult{}, err
	}

	var rootArgs []string
	if externalLinker {
		rootArgs = append(rootArgs, "-c")
	}
	rendered := renderUnits(prepared, externalLinker, rootArgs)
	scripts, err := s.writeScripts(prepared, rendered)
	if err != nil {
		return BuildResult{}, err
	}

	result := BuildResult{RootProject: prepared.walk.Root.Name, Scripts: scripts}
	for i, script := range rendered {
		verb := req.Verb
		if script.unit.IsDependency {
			verb = types.VerbBuildIL
		}
		log.Ctx(ctx).Info().
			Str("project", script.unit.Project.Name).
			Str("verb", string(verb)).
			Msg("compiling")
		if err := s.compile(ctx, prepared, req, verb, scripts[i], script.unit.Project.Name); err != nil {
			return result, err
		}
		if script.unit.IsDependency && script.unit.Artifact != "" {
			artifact := filepath.Join(home, script.unit.Artifact)
			if s.Waiter != nil && !s.Waiter.WaitReadable(ctx, artifact, req.WaitTimeout) {
				log.Ctx(ctx).Warn().
					Str("artifact", artifact).
					Dur("timeout", req.WaitTimeout).
					Msg("dependency artifact not readable in time, continuing")
			}
		}
	}

	if externalLinker {
		linkScript, err := s.link(ctx, prepared, req, rendered[len(rendered)-1].unit)
		if err != nil {
			return result, err
		}
		result.LinkScript = linkScript
	}

	if err := s.runAction(ctx, home, req.PostBuild); err != nil {
		return result, err
	}
	report, err := s.writeReport(prepared)
	if err != nil {
		return result, err
	}
	result.Report = report
	return result, nil
}

func (s Service) compile(ctx context.Context, p preparedWalk, req BuildRequest, verb types.Verb, script string, project string) error {
	runCtx, cancel := withOptionalTimeout(ctx, req.CompileTimeout)
	defer cancel()
	code, err := s.Process.Run(runCtx, p.req.Home, req.Compiler, string(verb), "@"+script)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return err
		}
		p.metrics.CompilerInvoked(-1)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(shared.MsgCompilerFailed + ": " + project).
			WithCause(err)
	}
	p.metrics.CompilerInvoked(code)
	if code != 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(shared.MsgCompilerFailed + ": " + project + " exited with " + strconv.Itoa(code))
	}
	return nil
}

// link writes link.rsp for the root unit and runs the external linker on
// the object file produced by "-c".
func (s Service) link(ctx context.Context, p preparedWalk, req BuildRequest, root types.BuildUnit) (string, error) {
	objectFile := objectFileFor(p.req.OutputFile, root.Project.Name)
	content := core.RenderLinkScript(root, objectFile, scriptOptions(p, true))
	path, err := adapters.NewOutputFileAdapter(p.req.Home).WriteScript(linkScriptFile, content)
	if err != nil {
		return "", err
	}
	runCtx, cancel := withOptionalTimeout(ctx, req.CompileTimeout)
	defer cancel()
	code, err := s.Process.Run(runCtx, p.req.Home, req.Linker, "@"+path)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return path, err
		}
		return path, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(shared.MsgLinkerFailed + ": " + req.Linker).
			WithCause(err)
	}
	if code != 0 {
		return path, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(shared.MsgLinkerFailed + ": " + req.Linker + " exited with " + strconv.Itoa(code))
	}
	return path, nil
}

// runAction runs a pre or post build command line. Empty is a no-op.
func (s Service) runAction(ctx context.Context, dir string, command string) error {
	args := shared.SplitArgs(command)
	if len(args) == 0 {
		return nil
	}
	log.Ctx(ctx).Info().Str("command", command).Msg("running build action")
	code, err := s.Process.Run(ctx, dir, args[0], args[1:]...)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(shared.MsgBuildActionFailed + ": " + command).
			WithCause(err)
	}
	if code != 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(shared.MsgBuildActionFailed + ": " + command + " exited with " + strconv.Itoa(code))
	}
	return nil
}

func objectFileFor(outputFile string, project string) string {
	ext := ".o"
	if runtime.GOOS == "windows" {
		ext = ".obj"
	}
	base := strings.TrimSpace(outputFile)
	if base == "" {
		return project + ext
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
