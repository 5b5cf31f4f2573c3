package adapters

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/ports"
)

// FlattenDirAdapter mirrors build inputs into Root, keeping their layout
// relative to a base directory. Parent-directory hops are dropped so files
// outside base land inside Root as well.
type FlattenDirAdapter struct {
	Root string
}

func NewFlattenDirAdapter(root string) FlattenDirAdapter {
	return FlattenDirAdapter{Root: root}
}

// CopyInto copies files in sorted order and returns the destinations of
// the files that were copied. Missing sources are skipped with a warning.
func (a FlattenDirAdapter) CopyInto(ctx context.Context, base string, files []string) ([]string, error) {
	if strings.TrimSpace(a.Root) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("flatten directory is empty")
	}
	if err := os.MkdirAll(a.Root, 0755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create flatten directory").
			WithCause(err)
	}
	ordered := append([]string(nil), files...)
	sort.Strings(ordered)

	var copied []string
	for _, src := range ordered {
		dest := a.destination(base, src)
		if err := copyFile(src, dest); err != nil {
			if os.IsNotExist(err) {
				log.Ctx(ctx).Warn().Str("file", src).Msg("flatten source missing")
				continue
			}
			return copied, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to copy " + src).
				WithCause(err)
		}
		copied = append(copied, dest)
	}
	return copied, nil
}

func (a FlattenDirAdapter) destination(base string, src string) string {
	rel, err := filepath.Rel(base, src)
	if err != nil {
		rel = filepath.Base(src)
	}
	var kept []string
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == ".." || part == "" || part == "." {
			continue
		}
		kept = append(kept, part)
	}
	return filepath.Join(append([]string{a.Root}, kept...)...)
}

func copyFile(src string, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

var _ ports.FlattenPort = FlattenDirAdapter{}
