package policies

import (
	"sort"
	"strings"
)

// UniversalTargetPrefix marks framework monikers every runtime can consume.
const UniversalTargetPrefix = "netstandard"

func IsUniversalTarget(target string) bool {
	return strings.HasPrefix(strings.ToLower(target), UniversalTargetPrefix)
}

// HasTarget reports whether any declared moniker contains requested, so
// "net7.0-windows" satisfies "net7.0".
func HasTarget(targets []string, requested string) bool {
	requested = strings.ToLower(requested)
	for _, target := range targets {
		if strings.Contains(strings.ToLower(target), requested) {
			return true
		}
	}
	return false
}

// IsCompatible accepts a project that declares the requested target or any
// universal target.
func IsCompatible(targets []string, requested string) bool {
	if HasTarget(targets, requested) {
		return true
	}
	for _, target := range targets {
		if IsUniversalTarget(target) {
			return true
		}
	}
	return false
}

// CandidateTargets orders the monikers tried during package resolution.
// When the project declares the requested target it goes first and the
// remaining declared targets follow in order. Otherwise only universal
// targets are tried, newest first.
func CandidateTargets(targets []string, requested string) []string {
	requested = strings.ToLower(requested)
	if HasTarget(targets, requested) {
		ordered := []string{requested}
		for _, target := range targets {
			lower := strings.ToLower(target)
			if lower == requested {
				continue
			}
			ordered = append(ordered, lower)
		}
		return ordered
	}
	var universal []string
	for _, target := range targets {
		if IsUniversalTarget(target) {
			universal = append(universal, strings.ToLower(target))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(universal)))
	return universal
}
