package adapters

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"flatbuild/internal/ports"
	"flatbuild/internal/shared"
)

type ExclusionFileAdapter struct{}

func NewExclusionFileAdapter() ExclusionFileAdapter {
	return ExclusionFileAdapter{}
}

// Load reads one lowercase name per line. A missing file is an empty list.
func (a ExclusionFileAdapter) Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read exclusion file").
			WithCause(err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, shared.NormalizePackageName(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read exclusion file").
			WithCause(err)
	}
	return shared.UniqueStrings(names), nil
}

// Extract lists the system.* and microsoft.* assemblies shipped with a
// framework runtime directory.
func (a ExclusionFileAdapter) Extract(runtimeDir string) ([]string, error) {
	entries, err := os.ReadDir(runtimeDir)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read runtime directory").
			WithCause(err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".dll") {
			continue
		}
		stem := strings.TrimSuffix(name, ".dll")
		if !strings.Contains(stem, ".") {
			continue
		}
		if strings.HasPrefix(stem, "system.") || strings.HasPrefix(stem, "microsoft.") {
			names = append(names, stem)
		}
	}
	sort.Strings(names)
	return shared.UniqueStrings(names), nil
}

func (a ExclusionFileAdapter) Write(path string, names []string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create exclusion directory").
				WithCause(err)
		}
	}
	var b strings.Builder
	b.WriteString("# generated by flatbuild\n")
	for _, name := range names {
		b.WriteString(name)
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write exclusion file").
			WithCause(err)
	}
	return nil
}

var _ ports.ExclusionSourcePort = ExclusionFileAdapter{}
