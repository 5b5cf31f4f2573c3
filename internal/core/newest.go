package core

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/types"
)

// frameworkNoise is stripped from library paths, in this order, before
// comparing them. Removing "net" before "netcoreapp" is intentional and
// leaves "coreapp" behind.
var frameworkNoise = []string{"netstandard", "net", "netcoreapp", "netcore", "."}

func newestKey(path string) string {
	key := path
	for _, token := range frameworkNoise {
		key = strings.ReplaceAll(key, token, "")
	}
	return key
}

// pickNewest returns the index of the path with the greatest stripped key.
// The comparison is on strings, so "9.0.0" beats "10.0.0". Earlier entries
// win ties.
func pickNewest(paths []string) int {
	best := 0
	bestKey := ""
	for i, path := range paths {
		key := newestKey(path)
		if i == 0 || key > bestKey {
			best = i
			bestKey = key
		}
	}
	return best
}

// MergeLibrary adds candidate to libs. When libs already holds a library of
// the same package, only the newest one is kept and it moves to the end.
// Libraries without a package name are only deduplicated by path.
func MergeLibrary(ctx context.Context, libs []types.ResolvedLibrary, candidate types.ResolvedLibrary) ([]types.ResolvedLibrary, types.ResolvedLibrary) {
	if candidate.Package == "" {
		for _, lib := range libs {
			if lib.Package == "" && lib.Path == candidate.Path {
				return libs, lib
			}
		}
		return append(libs, candidate), candidate
	}

	kept := make([]types.ResolvedLibrary, 0, len(libs)+1)
	var contenders []types.ResolvedLibrary
	for _, lib := range libs {
		if lib.Package == candidate.Package {
			contenders = append(contenders, lib)
			continue
		}
		kept = append(kept, lib)
	}
	if len(contenders) == 0 {
		return append(libs, candidate), candidate
	}
	contenders = append(contenders, candidate)
	paths := make([]string, len(contenders))
	for i, lib := range contenders {
		paths[i] = lib.Path
	}
	winner := contenders[pickNewest(paths)]
	warnOnSemverDisagreement(ctx, contenders, winner)
	return append(kept, winner), winner
}

// warnOnSemverDisagreement logs when semantic ordering would have chosen a
// different version. The heuristic winner is kept either way.
func warnOnSemverDisagreement(ctx context.Context, contenders []types.ResolvedLibrary, winner types.ResolvedLibrary) {
	var newest *semver.Version
	newestRaw := ""
	for _, lib := range contenders {
		v, err := semver.NewVersion(lib.Version)
		if err != nil {
			return
		}
		if newest == nil || v.GreaterThan(newest) {
			newest = v
			newestRaw = lib.Version
		}
	}
	if newest == nil {
		return
	}
	chosen, err := semver.NewVersion(winner.Version)
	if err != nil || chosen.Equal(newest) {
		return
	}
	log.Ctx(ctx).Warn().
		Str("package", winner.Package).
		Str("kept", winner.Version).
		Str("semver_newest", newestRaw).
		Msg("newest-wins heuristic disagrees with semantic version order")
}
