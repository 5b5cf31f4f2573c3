package types

type ReportUnit struct {
	Project    string            `yaml:"project"`
	Path       string            `yaml:"path"`
	Dependency bool              `yaml:"dependency,omitempty"`
	Artifact   string            `yaml:"artifact,omitempty"`
	Libraries  []ResolvedLibrary `yaml:"libraries,omitempty"`
	Unresolved []string          `yaml:"unresolved,omitempty"`
	Sources    int               `yaml:"sources"`
	Resources  int               `yaml:"resources"`
}

// ResolutionReport is the YAML summary written after a walk.
type ResolutionReport struct {
	Framework   string       `yaml:"framework"`
	Mode        BuildMode    `yaml:"mode"`
	Root        string       `yaml:"root"`
	GeneratedAt string       `yaml:"generated_at,omitempty"`
	Units       []ReportUnit `yaml:"units"`
}
