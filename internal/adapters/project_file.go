package adapters

import (
	"bytes"
	"context"
	"encoding/xml"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"flatbuild/internal/policies"
	"flatbuild/internal/ports"
	"flatbuild/internal/shared"
	"flatbuild/internal/types"
)

// legacyReferenceRange is applied to a Reference without SpecificVersion.
const legacyReferenceRange = "[0.0.0.0,7.0.0.0]"

type ProjectFileAdapter struct{}

func NewProjectFileAdapter() ProjectFileAdapter {
	return ProjectFileAdapter{}
}

// xmlElement is the generic tree produced by the single decode pass.
type xmlElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Text     string       `xml:",chardata"`
	Children []xmlElement `xml:",any"`
}

type projectItem struct {
	Include  string
	Remove   string
	Metadata map[string]string
}

// projectDocument is the typed view of a descriptor. Property and item
// names are matched case-insensitively at any depth below the root.
type projectDocument struct {
	TargetFrameworks string
	OutputType       string
	AssemblyName     string
	DefineConstants  string
	UseWindowsForms  string
	UseWPF           string
	Toolchain        policies.ToolchainProperties
	Compile          []projectItem
	Content          []projectItem
	NativeLibrary    []projectItem
	EmbeddedResource []projectItem
	Reference        []projectItem
	NativeReference  []projectItem
	PackageReference []projectItem
	ProjectReference []projectItem
	Imports          []string
}

func (a ProjectFileAdapter) Parse(ctx context.Context, path string, opts types.ParseOptions) (types.ProjectNode, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return types.ProjectNode{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(shared.MsgDescriptorNotFound + ": " + abs).
			WithCause(err)
	}
	doc, err := decodeProject(content)
	if err != nil {
		return types.ProjectNode{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(shared.MsgDescriptorParse + ": " + abs).
			WithCause(err)
	}

	dir := filepath.Dir(abs)
	name := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	macros := projectMacros(abs, opts)
	node := types.ProjectNode{
		Path:            abs,
		Dir:             dir,
		Name:            name,
		OutputKind:      outputKindOf(doc.OutputType),
		UseWindowsForms: strings.EqualFold(strings.TrimSpace(doc.UseWindowsForms), "true"),
		UseWPF:          strings.EqualFold(strings.TrimSpace(doc.UseWPF), "true"),
	}
	if assembly := strings.TrimSpace(doc.AssemblyName); assembly != "" && !strings.Contains(assembly, "$(") {
		node.Name = assembly
	}
	node.TargetFrameworks = splitList(strings.ToLower(doc.TargetFrameworks))
	if len(node.TargetFrameworks) == 0 && opts.Target != "" {
		node.TargetFrameworks = []string{strings.ToLower(opts.Target)}
	}
	node.DefineConstants = splitList(doc.DefineConstants)

	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	node.CompilerArgs = policies.CompilerFlags(doc.Toolchain)
	node.LinkerArgs = policies.LinkerFlags(doc.Toolchain, goos)

	sources := collectSources(dir, expandItems(ctx, dir, doc.Compile, false, macros), expandItems(ctx, dir, doc.Compile, true, macros))
	resources := map[string]struct{}{}
	for _, source := range sources {
		node.Sources = append(node.Sources, shared.ToPortable(source, opts.BuildRoot))
		if resx, ok := designerResource(source); ok {
			resources[shared.PathKey(resx)] = struct{}{}
			node.Resources = append(node.Resources, types.Resource{Path: shared.ToPortable(resx, opts.BuildRoot)})
		}
	}
	for _, item := range doc.EmbeddedResource {
		logical := item.Metadata["logicalname"]
		for _, path := range expandPattern(ctx, dir, item.Include, macros) {
			key := shared.PathKey(path)
			if _, ok := resources[key]; ok {
				continue
			}
			resources[key] = struct{}{}
			node.Resources = append(node.Resources, types.Resource{
				Path:        shared.ToPortable(path, opts.BuildRoot),
				LogicalName: applyMacros(logical, macros),
			})
		}
	}
	for _, path := range expandItems(ctx, dir, doc.Content, true, macros) {
		node.Content = append(node.Content, shared.ToPortable(path, opts.BuildRoot))
	}
	node.NativeLibraries = append(node.NativeLibraries, expandItems(ctx, dir, doc.NativeLibrary, true, macros)...)
	for _, item := range doc.NativeReference {
		if hint := item.Metadata["hintpath"]; hint != "" {
			node.NativeLibraries = append(node.NativeLibraries, expandPattern(ctx, dir, hint, macros)...)
		}
	}

	seenPackages := map[string]struct{}{}
	addPackage := func(ref types.PackageReference) {
		key := shared.NormalizePackageName(ref.Name)
		if key == "" {
			return
		}
		if _, ok := seenPackages[key]; ok {
			return
		}
		seenPackages[key] = struct{}{}
		node.PackageReferences = append(node.PackageReferences, ref)
	}
	for _, item := range doc.Reference {
		if hint := item.Metadata["hintpath"]; hint != "" {
			node.Libraries = append(node.Libraries, expandPattern(ctx, dir, hint, macros)...)
			continue
		}
		if isWindowsFrameworkReference(item.Include) {
			continue
		}
		refName, version := splitAssemblyName(item.Include)
		if strings.EqualFold(strings.TrimSpace(item.Metadata["specificversion"]), "true") && version != "" {
			addPackage(types.PackageReference{Name: refName, Version: version})
			continue
		}
		addPackage(types.PackageReference{Name: refName, Version: legacyReferenceRange})
	}
	for _, item := range doc.PackageReference {
		addPackage(types.PackageReference{
			Name:    strings.TrimSpace(applyMacros(item.Include, macros)),
			Version: strings.TrimSpace(item.Metadata["version"]),
		})
	}

	for _, path := range expandItems(ctx, dir, doc.ProjectReference, true, macros) {
		node.ProjectReferences = appendExisting(ctx, node.ProjectReferences, path, abs)
	}
	for _, imported := range doc.Imports {
		for _, path := range expandPattern(ctx, dir, imported, macros) {
			if !isProjectImport(path) {
				continue
			}
			node.ProjectReferences = appendExisting(ctx, node.ProjectReferences, path, abs)
		}
	}
	return node, nil
}

func decodeProject(content []byte) (projectDocument, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	var root xmlElement
	if err := xml.Unmarshal(content, &root); err != nil {
		return projectDocument{}, err
	}
	if !strings.EqualFold(root.XMLName.Local, "project") {
		return projectDocument{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("root element is " + root.XMLName.Local + ", not Project")
	}
	doc := projectDocument{}
	for _, child := range root.Children {
		doc.visit(child)
	}
	return doc, nil
}

// visit dispatches on the element name. Groups are flattened: conditions
// are not evaluated.
func (d *projectDocument) visit(el xmlElement) {
	switch strings.ToLower(el.XMLName.Local) {
	case "propertygroup":
		for _, prop := range el.Children {
			d.setProperty(strings.ToLower(prop.XMLName.Local), strings.TrimSpace(prop.Text))
		}
	case "itemgroup":
		for _, item := range el.Children {
			d.addItem(item)
		}
	case "import":
		if project := attrValue(el, "project"); project != "" {
			d.Imports = append(d.Imports, project)
		}
	default:
		for _, child := range el.Children {
			d.visit(child)
		}
	}
}

// setProperty keeps the first value seen for each property.
func (d *projectDocument) setProperty(name string, value string) {
	set := func(target *string) {
		if *target == "" {
			*target = value
		}
	}
	switch name {
	case "targetframework", "targetframeworks":
		set(&d.TargetFrameworks)
	case "outputtype":
		set(&d.OutputType)
	case "assemblyname":
		set(&d.AssemblyName)
	case "defineconstants":
		set(&d.DefineConstants)
	case "usewindowsforms":
		set(&d.UseWindowsForms)
	case "usewpf":
		set(&d.UseWPF)
	case "nostdlib":
		set(&d.Toolchain.NoStdLib)
	case "nostandardlibraries":
		set(&d.Toolchain.NoStandardLibraries)
	case "ilcsystemmodule":
		set(&d.Toolchain.IlcSystemModule)
	case "ilcoptimizationpreference":
		set(&d.Toolchain.IlcOptimizationPreference)
	case "optimize":
		set(&d.Toolchain.Optimize)
	case "entrypointsymbol":
		set(&d.Toolchain.EntryPointSymbol)
	case "linkersubsystem":
		set(&d.Toolchain.LinkerSubsystem)
	case "baseaddress":
		set(&d.Toolchain.BaseAddress)
	case "incremental":
		set(&d.Toolchain.Incremental)
	}
}

func (d *projectDocument) addItem(el xmlElement) {
	item := projectItem{
		Include:  attrValue(el, "include"),
		Remove:   attrValue(el, "remove"),
		Metadata: map[string]string{},
	}
	for _, attr := range el.Attrs {
		key := strings.ToLower(attr.Name.Local)
		if key != "include" && key != "remove" {
			item.Metadata[key] = strings.TrimSpace(attr.Value)
		}
	}
	for _, child := range el.Children {
		key := strings.ToLower(child.XMLName.Local)
		if _, ok := item.Metadata[key]; !ok {
			item.Metadata[key] = strings.TrimSpace(child.Text)
		}
	}
	switch strings.ToLower(el.XMLName.Local) {
	case "compile":
		d.Compile = append(d.Compile, item)
	case "content":
		d.Content = append(d.Content, item)
	case "nativelibrary":
		d.NativeLibrary = append(d.NativeLibrary, item)
	case "embeddedresource":
		d.EmbeddedResource = append(d.EmbeddedResource, item)
	case "reference":
		d.Reference = append(d.Reference, item)
	case "nativereference":
		d.NativeReference = append(d.NativeReference, item)
	case "packagereference":
		d.PackageReference = append(d.PackageReference, item)
	case "projectreference":
		d.ProjectReference = append(d.ProjectReference, item)
	case "linkerarg":
		if value := firstNonEmpty(item.Include, strings.TrimSpace(el.Text)); value != "" {
			d.Toolchain.LinkerArgItems = append(d.Toolchain.LinkerArgItems, value)
		}
	}
}

func attrValue(el xmlElement, name string) string {
	for _, attr := range el.Attrs {
		if strings.EqualFold(attr.Name.Local, name) {
			return strings.TrimSpace(attr.Value)
		}
	}
	return ""
}

var macroPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_.]+)\)`)

func projectMacros(path string, opts types.ParseOptions) map[string]string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(base, ext)
	macros := map[string]string{
		"msbuildprojectdirectory":  dir,
		"msbuildthisfiledirectory": dir + string(filepath.Separator),
		"msbuildprojectname":       name,
		"msbuildthisfilename":      name,
		"msbuildprojectfile":       base,
		"msbuildthisfile":          base,
		"msbuildprojectfullpath":   path,
		"msbuildthisfilefullpath":  path,
		"msbuildprojectextension":  ext,
		"msbuildthisfileextension": ext,
		"targetname":               name,
		"configuration":            "Release",
	}
	if opts.BuildRoot != "" {
		macros["msbuildstartupdirectory"] = opts.BuildRoot
	}
	return macros
}

// applyMacros substitutes known $(Name) references. Unknown ones are kept.
func applyMacros(value string, macros map[string]string) string {
	if !strings.Contains(value, "$(") {
		return value
	}
	return macroPattern.ReplaceAllStringFunc(value, func(match string) string {
		key := strings.ToLower(match[2 : len(match)-1])
		if replacement, ok := macros[key]; ok {
			return replacement
		}
		return match
	})
}

// expandPattern resolves one item value into absolute paths. A value may
// hold several ';' separated entries and wildcards.
func expandPattern(ctx context.Context, dir string, value string, macros map[string]string) []string {
	var paths []string
	for _, entry := range splitList(applyMacros(value, macros)) {
		entry = shared.ToSysPath(entry)
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		entry = filepath.Clean(entry)
		if !strings.ContainsAny(entry, "*?[") {
			paths = append(paths, entry)
			continue
		}
		matches, err := doublestar.FilepathGlob(entry, doublestar.WithFilesOnly())
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("pattern", entry).Msg("invalid item pattern")
			continue
		}
		paths = append(paths, matches...)
	}
	return paths
}

func expandItems(ctx context.Context, dir string, items []projectItem, include bool, macros map[string]string) []string {
	var paths []string
	for _, item := range items {
		value := item.Remove
		if include {
			value = item.Include
		}
		if value == "" {
			continue
		}
		paths = append(paths, expandPattern(ctx, dir, value, macros)...)
	}
	return paths
}

// collectSources returns every *.cs below dir, outside bin and obj, minus
// removed paths, followed by explicit includes.
func collectSources(dir string, removed []string, included []string) []string {
	skip := map[string]struct{}{}
	for _, path := range removed {
		skip[shared.PathKey(path)] = struct{}{}
	}
	seen := map[string]struct{}{}
	var sources []string
	add := func(path string) {
		key := shared.PathKey(path)
		if _, ok := skip[key]; ok {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		sources = append(sources, path)
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && shouldSkipSourceDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".cs") {
			add(path)
		}
		return nil
	})
	for _, path := range included {
		if strings.EqualFold(filepath.Ext(path), ".cs") {
			add(path)
		}
	}
	return sources
}

func shouldSkipSourceDir(name string) bool {
	switch strings.ToLower(name) {
	case "bin", "obj":
		return true
	default:
		return false
	}
}

// designerResource maps Foo.Designer.cs to a sibling Foo.resx when it exists.
func designerResource(source string) (string, bool) {
	const suffix = ".designer.cs"
	if len(source) <= len(suffix) || !strings.EqualFold(source[len(source)-len(suffix):], suffix) {
		return "", false
	}
	resx := source[:len(source)-len(suffix)] + ".resx"
	if info, err := os.Stat(resx); err == nil && !info.IsDir() {
		return resx, true
	}
	return "", false
}

func outputKindOf(value string) types.OutputKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "winexe":
		return types.OutputKindWinExe
	case "library":
		return types.OutputKindLibrary
	case "shared":
		return types.OutputKindShared
	default:
		return types.OutputKindExe
	}
}

// splitAssemblyName splits "Name, Version=1.2.3.4, Culture=..." into the
// name and version.
func splitAssemblyName(value string) (string, string) {
	parts := strings.Split(value, ",")
	name := strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "version") {
			return name, strings.TrimSpace(val)
		}
	}
	return name, ""
}

// isWindowsFrameworkReference matches GAC assemblies that only exist as
// part of the desktop framework.
func isWindowsFrameworkReference(value string) bool {
	name, _ := splitAssemblyName(value)
	switch strings.ToLower(name) {
	case "system.windows.forms", "presentationcore", "presentationframework", "windowsbase", "system.xaml":
		return true
	default:
		return false
	}
}

func isProjectImport(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csproj", ".projitems":
		return true
	default:
		return false
	}
}

func appendExisting(ctx context.Context, refs []string, path string, self string) []string {
	if shared.PathKey(path) == shared.PathKey(self) {
		return refs
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		log.Ctx(ctx).Warn().Str("project", self).Str("reference", path).Msg("referenced project not found")
		return refs
	}
	for _, existing := range refs {
		if shared.PathKey(existing) == shared.PathKey(path) {
			return refs
		}
	}
	return append(refs, path)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

var _ ports.ProjectParserPort = ProjectFileAdapter{}
