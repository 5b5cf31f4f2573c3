package adapters

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/ports"
	"flatbuild/internal/shared"
)

// ProcessAdapter runs external tools with their output attached to the
// configured writers.
type ProcessAdapter struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewProcessAdapter() ProcessAdapter {
	return ProcessAdapter{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run returns the exit code of the finished process. The error is set only
// when the process could not be started or ctx expired.
func (a ProcessAdapter) Run(ctx context.Context, dir string, name string, args ...string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return -1, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("process name is empty")
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = a.Stdout
	cmd.Stderr = a.Stderr
	log.Ctx(ctx).Debug().Str("dir", dir).Str("process", name).Strs("args", args).Msg("starting process")

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := "process cancelled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = shared.MsgProcessTimeout
		}
		return -1, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(msg + ": " + name).
			WithCause(ctxErr)
	}
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to start " + name).
		WithCause(err)
}

var _ ports.ProcessPort = ProcessAdapter{}
