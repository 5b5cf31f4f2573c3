package policies

import (
	"sort"
	"strings"

	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

// runtimePackagePrefix marks runtime-specific packages, which are never
// referenced directly by a build.
const runtimePackagePrefix = "runtime."

// ExclusionPolicy decides which packages resolution must skip. Entries are
// lowercase names; an entry ending in "*" excludes every name with that
// prefix.
type ExclusionPolicy struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewExclusionPolicy(lists ...[]string) ExclusionPolicy {
	policy := ExclusionPolicy{exact: map[string]struct{}{}}
	for _, list := range lists {
		for _, entry := range list {
			policy.add(entry)
		}
	}
	return policy
}

func (p *ExclusionPolicy) add(entry string) {
	name, kind := parseNamePattern(shared.NormalizePackageName(entry))
	switch kind {
	case patternExact:
		p.exact[name] = struct{}{}
	case patternPrefix:
		p.prefixes = append(p.prefixes, name)
	}
}

// Excludes reports whether the package name is in the exclusion set.
func (p ExclusionPolicy) Excludes(name string) bool {
	normalized := shared.NormalizePackageName(name)
	if normalized == "" {
		return false
	}
	if _, ok := p.exact[normalized]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

// AllowPath reports whether a store directory may be indexed: runtime
// packages and excluded packages are dropped by path segment.
func (p ExclusionPolicy) AllowPath(path string) bool {
	for _, segment := range shared.SplitPath(path) {
		lower := strings.ToLower(segment)
		if strings.HasPrefix(lower, runtimePackagePrefix) {
			return false
		}
		if _, ok := p.exact[lower]; ok {
			return false
		}
	}
	return true
}

// FilterIndex applies AllowPath to both directory lists of index.
func (p ExclusionPolicy) FilterIndex(index types.StoreIndex) types.StoreIndex {
	filtered := types.StoreIndex{Root: index.Root}
	for _, dir := range index.LibDirs {
		if p.AllowPath(strings.TrimPrefix(dir, index.Root)) {
			filtered.LibDirs = append(filtered.LibDirs, dir)
		}
	}
	for _, dir := range index.ManifestDirs {
		if p.AllowPath(strings.TrimPrefix(dir, index.Root)) {
			filtered.ManifestDirs = append(filtered.ManifestDirs, dir)
		}
	}
	return filtered
}

// Names returns the exclusion entries in sorted order.
func (p ExclusionPolicy) Names() []string {
	names := make([]string, 0, len(p.exact)+len(p.prefixes))
	for name := range p.exact {
		names = append(names, name)
	}
	for _, prefix := range p.prefixes {
		names = append(names, prefix+"*")
	}
	sort.Strings(names)
	return names
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternInvalid
)

func parseNamePattern(value string) (string, patternKind) {
	pattern := strings.TrimSpace(value)
	if pattern == "" || pattern == "*" || strings.HasPrefix(pattern, "#") {
		return "", patternInvalid
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.TrimSuffix(pattern, "*"), patternPrefix
	}
	return pattern, patternExact
}
