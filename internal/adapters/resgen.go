package adapters

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"flatbuild/internal/ports"
	"flatbuild/internal/shared"
)

// ResGenAdapter compiles .resx sources into .resources blobs with an
// external resgen tool.
type ResGenAdapter struct {
	Tool      string
	OutputDir string
}

func NewResGenAdapter(tool string, outputDir string) ResGenAdapter {
	return ResGenAdapter{Tool: tool, OutputDir: outputDir}
}

// Compile writes <namespace>.<base>.resources into OutputDir.
func (a ResGenAdapter) Compile(ctx context.Context, source string, namespace string) (string, error) {
	if strings.TrimSpace(a.Tool) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("resource compiler is not configured")
	}
	if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create resource output directory").
			WithCause(err)
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if namespace != "" {
		base = namespace + "." + base
	}
	output := filepath.Join(a.OutputDir, base+".resources")

	cmd := exec.CommandContext(ctx, a.Tool, source, output)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to compile resource " + source).
			WithCause(shared.CommandError(out, err))
	}
	return output, nil
}

var _ ports.ResourceCompilerPort = ResGenAdapter{}
