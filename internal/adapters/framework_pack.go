package adapters

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/ports"
)

// FrameworkPackAdapter reads shared framework runtime packs from the
// package store. A pack lives at
// <root>/<framework>.runtime.<rid>/<version>/runtimes/<rid>/lib/<target>.
type FrameworkPackAdapter struct {
	Root string
	RID  string
}

func NewFrameworkPackAdapter(root string, goos string, goarch string) FrameworkPackAdapter {
	return FrameworkPackAdapter{Root: root, RID: RuntimeIdentifier(goos, goarch)}
}

// RuntimeIdentifier maps a Go platform onto the runtime pack moniker.
func RuntimeIdentifier(goos string, goarch string) string {
	osName := "uefi"
	switch goos {
	case "windows":
		osName = "win"
	case "linux":
		osName = "linux"
	}
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "x86"
	}
	return osName + "-" + arch
}

// Libraries returns the assemblies of the newest pack version built for
// target. A missing pack yields no libraries.
func (a FrameworkPackAdapter) Libraries(ctx context.Context, framework string, target string) ([]string, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if strings.TrimSpace(a.Root) == "" || strings.TrimSpace(framework) == "" || target == "" {
		return nil, nil
	}
	packDir := filepath.Join(a.Root, strings.ToLower(framework)+".runtime."+a.RID)
	version, ok := newestPackVersion(packDir, strings.TrimPrefix(target, "net"))
	if !ok {
		log.Ctx(ctx).Debug().Str("pack", packDir).Str("target", target).Msg("framework pack not installed")
		return nil, nil
	}
	libDir := filepath.Join(packDir, version, "runtimes", a.RID, "lib", target)
	entries, err := os.ReadDir(libDir)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("dir", libDir).Msg("framework pack has no libraries for target")
		return nil, nil
	}
	var libs []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".dll") {
			libs = append(libs, filepath.Join(libDir, entry.Name()))
		}
	}
	sort.Strings(libs)
	log.Ctx(ctx).Debug().
		Str("framework", framework).
		Str("version", version).
		Int("libraries", len(libs)).
		Msg("framework pack libraries listed")
	return libs, nil
}

// newestPackVersion picks the highest version directory whose name starts
// with the target's version digits.
func newestPackVersion(packDir string, prefix string) (string, bool) {
	entries, err := os.ReadDir(packDir)
	if err != nil {
		return "", false
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Slice(names, func(i, j int) bool {
		vi, erri := semver.NewVersion(names[i])
		vj, errj := semver.NewVersion(names[j])
		if erri != nil || errj != nil {
			return names[i] > names[j]
		}
		return vi.GreaterThan(vj)
	})
	return names[0], true
}

var _ ports.FrameworkLibraryPort = FrameworkPackAdapter{}
