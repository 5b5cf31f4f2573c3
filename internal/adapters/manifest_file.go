package adapters

import (
	"encoding/xml"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	lru "github.com/hashicorp/golang-lru/v2"

	"flatbuild/internal/ports"
	"flatbuild/internal/types"
)

const manifestCacheSize = 512

// ManifestFileAdapter reads *.nuspec manifests. Parsed manifests are kept
// in a bounded LRU keyed by path and invalidated on mtime change.
type ManifestFileAdapter struct {
	cache *lru.Cache[string, manifestCacheEntry]
}

func NewManifestFileAdapter() *ManifestFileAdapter {
	cache, err := lru.New[string, manifestCacheEntry](manifestCacheSize)
	if err != nil {
		panic(err)
	}
	return &ManifestFileAdapter{cache: cache}
}

type nuspecDocument struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		ID           string `xml:"id"`
		Version      string `xml:"version"`
		Dependencies struct {
			Groups []nuspecGroup `xml:"group"`
		} `xml:"dependencies"`
	} `xml:"metadata"`
}

type nuspecGroup struct {
	TargetFramework string             `xml:"targetFramework,attr"`
	Dependencies    []nuspecDependency `xml:"dependency"`
}

type nuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

type manifestCacheEntry struct {
	modTime time.Time
	groups  []types.ManifestEntry
}

// Dependencies returns the group of <packageName>.nuspec in packageDir
// whose framework equals target.
func (a *ManifestFileAdapter) Dependencies(packageDir string, packageName string, target string) (types.ManifestEntry, bool, error) {
	path, ok := manifestPath(packageDir, packageName)
	if !ok {
		return types.ManifestEntry{}, false, nil
	}
	entry, err := a.load(path)
	if err != nil {
		return types.ManifestEntry{}, false, err
	}
	want := NormalizeManifestFramework(target)
	for _, group := range entry.groups {
		if group.TargetFramework == want {
			return group, true, nil
		}
	}
	return types.ManifestEntry{}, false, nil
}

// NormalizeManifestFramework lowercases a group framework and strips the
// leading dot of ".NETStandard2.0" style names.
func NormalizeManifestFramework(value string) string {
	return strings.TrimLeft(strings.ToLower(strings.TrimSpace(value)), ".")
}

func manifestPath(dir string, name string) (string, bool) {
	path := filepath.Join(dir, strings.ToLower(name)+".nuspec")
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), name+".nuspec") {
			return filepath.Join(dir, entry.Name()), true
		}
	}
	return "", false
}

func (a *ManifestFileAdapter) load(path string) (manifestCacheEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return manifestCacheEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read package manifest").
			WithCause(err)
	}
	if entry, ok := a.cache.Get(path); ok && entry.modTime.Equal(info.ModTime()) {
		return entry, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		code := errbuilder.CodeInternal
		if errors.Is(err, fs.ErrNotExist) {
			code = errbuilder.CodeNotFound
		}
		return manifestCacheEntry{}, errbuilder.New().
			WithCode(code).
			WithMsg("failed to read package manifest").
			WithCause(err)
	}
	var doc nuspecDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return manifestCacheEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse package manifest " + path).
			WithCause(err)
	}
	entry := manifestCacheEntry{modTime: info.ModTime()}
	for _, group := range doc.Metadata.Dependencies.Groups {
		manifest := types.ManifestEntry{TargetFramework: NormalizeManifestFramework(group.TargetFramework)}
		for _, dep := range group.Dependencies {
			id := strings.TrimSpace(dep.ID)
			if id == "" {
				continue
			}
			manifest.Dependencies = append(manifest.Dependencies, types.PackageReference{
				Name:    id,
				Version: strings.TrimSpace(dep.Version),
			})
		}
		entry.groups = append(entry.groups, manifest)
	}
	a.cache.Add(path, entry)
	return entry, nil
}

var _ ports.ManifestPort = (*ManifestFileAdapter)(nil)
