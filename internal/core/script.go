package core

import (
	"path/filepath"
	"sort"
	"strings"

	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

const ldflagsPrefix = "--ldflags"

// RenderScript renders one unit as a compiler response file, one argument
// per line. Every file category is deduplicated by canonical path and
// sorted, so equal inputs render byte-identical scripts.
func RenderScript(unit types.BuildUnit, opts types.ScriptOptions) string {
	set := unit.Set
	if set == nil {
		set = &types.BuildSet{}
	}
	args, routed := splitLinkerArgs(set.Args)

	var lines []string
	header := "# Project: " + unit.Project.Name
	if opts.Mode != "" {
		header += ", Mode: " + string(opts.Mode)
	}
	lines = append(lines, header)
	if !hasOption(args, "-o") && !hasOption(args, "--out") {
		switch {
		case unit.IsDependency:
			lines = append(lines, "-o "+unit.Project.Name+".dll")
		case opts.OutputFile != "":
			lines = append(lines, "-o "+opts.OutputFile)
		}
	}
	if kind := outputKind(unit, opts); kind != "" && !hasOption(args, "--target") {
		lines = append(lines, "--target "+string(kind))
	}
	lines = append(lines, shared.UniqueStrings(args)...)

	for _, constant := range sortedUnique(set.Constants) {
		lines = append(lines, "-d "+constant)
	}
	if !opts.ExternalLinker {
		for _, arg := range shared.UniqueStrings(append(routed, set.LinkerArgs...)) {
			lines = append(lines, ldflagsPrefix+" "+arg)
		}
	}

	lines = append(lines, expandPaths(set.Sources, opts.BuildRoot)...)
	for _, lib := range libraryPaths(set.Libraries, opts.PackageRoot) {
		lines = append(lines, "-r "+lib)
	}
	for _, ref := range sortedUnique(set.References) {
		lines = append(lines, "-r "+ref)
	}
	if !opts.ExternalLinker {
		for _, native := range expandPaths(set.NativeLibraries, opts.BuildRoot) {
			lines = append(lines, ldflagsPrefix+` "`+native+`"`)
		}
	}
	for _, res := range resourceArgs(set.Resources, opts.BuildRoot) {
		lines = append(lines, "-res "+res)
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderLinkScript renders the response file handed to an external linker:
// the object file first, then linker arguments and native libraries.
func RenderLinkScript(unit types.BuildUnit, objectFile string, opts types.ScriptOptions) string {
	set := unit.Set
	if set == nil {
		set = &types.BuildSet{}
	}
	_, routed := splitLinkerArgs(set.Args)
	lines := []string{objectFile}
	lines = append(lines, shared.UniqueStrings(append(routed, set.LinkerArgs...))...)
	lines = append(lines, expandPaths(set.NativeLibraries, opts.BuildRoot)...)
	return strings.Join(lines, "\n") + "\n"
}

func outputKind(unit types.BuildUnit, opts types.ScriptOptions) types.OutputKind {
	if !unit.IsDependency && opts.OutputKind != "" {
		return opts.OutputKind
	}
	return unit.Project.OutputKind
}

// splitLinkerArgs moves "--ldflags x" passthrough arguments out of args.
func splitLinkerArgs(args []string) ([]string, []string) {
	var rest []string
	var routed []string
	for _, arg := range args {
		lower := strings.ToLower(arg)
		if !strings.HasPrefix(lower, ldflagsPrefix) {
			rest = append(rest, arg)
			continue
		}
		value := strings.TrimLeft(arg[len(ldflagsPrefix):], " :=")
		value = strings.Trim(value, `"'`)
		routed = append(routed, shared.SplitArgs(value)...)
	}
	return rest, routed
}

// hasOption matches "-o x", "-o:x" and "-o=x" case-insensitively.
func hasOption(args []string, name string) bool {
	for _, arg := range args {
		if len(arg) <= len(name) || !strings.EqualFold(arg[:len(name)], name) {
			continue
		}
		switch arg[len(name)] {
		case ' ', ':', '=':
			return true
		}
	}
	return false
}

func expandPaths(paths []string, root string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, path := range paths {
		abs := shared.ExpandPortable(path, root)
		key := shared.PathKey(abs)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, abs)
	}
	sort.Strings(out)
	return out
}

func libraryPaths(libs []types.ResolvedLibrary, packageRoot string) []string {
	paths := make([]string, 0, len(libs))
	for _, lib := range libs {
		paths = append(paths, lib.Path)
	}
	return expandPaths(paths, packageRoot)
}

func resourceArgs(resources []types.Resource, root string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, res := range resources {
		abs := shared.ExpandPortable(res.Path, root)
		key := shared.PathKey(abs)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		arg := abs
		if res.LogicalName != "" && res.LogicalName != filepath.Base(abs) {
			arg += "," + res.LogicalName
		}
		out = append(out, arg)
	}
	sort.Strings(out)
	return out
}

func sortedUnique(values []string) []string {
	out := shared.UniqueStrings(values)
	sort.Strings(out)
	return out
}
