package policies

import (
	"strings"

	"flatbuild/internal/shared"
)

// ToolchainProperties are the descriptor properties that turn into compiler
// or linker arguments.
type ToolchainProperties struct {
	NoStdLib                  string
	NoStandardLibraries       string
	IlcSystemModule           string
	IlcOptimizationPreference string
	Optimize                  string
	EntryPointSymbol          string
	LinkerSubsystem           string
	BaseAddress               string
	Incremental               string
	LinkerArgItems            []string
}

func CompilerFlags(props ToolchainProperties) []string {
	var flags []string
	if isTrue(props.NoStdLib) || isTrue(props.NoStandardLibraries) || strings.TrimSpace(props.IlcSystemModule) != "" {
		flags = append(flags, "--stdlib:None")
	}
	switch strings.ToLower(strings.TrimSpace(props.IlcOptimizationPreference)) {
	case "speed":
		flags = append(flags, "-Ot")
	case "size":
		flags = append(flags, "-Os")
	default:
		if isTrue(props.Optimize) {
			flags = append(flags, "-Ot")
		}
	}
	return flags
}

// defaultIncremental is used when the descriptor does not set Incremental.
const defaultIncremental = "no"

// LinkerFlags renders linker options in the dialect of the target OS:
// "-entry:x" style for linux and "/ENTRY:x" style otherwise. The
// incremental switch is always present.
func LinkerFlags(props ToolchainProperties, goos string) []string {
	unix := goos == "linux"
	var flags []string
	for _, item := range props.LinkerArgItems {
		flags = append(flags, shared.SplitArgs(item)...)
	}
	add := func(unixFlag string, winFlag string, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if unix {
			flags = append(flags, unixFlag+value)
			return
		}
		flags = append(flags, winFlag+value)
	}
	add("-entry:", "/ENTRY:", props.EntryPointSymbol)
	add("-subsystem:", "/SUBSYSTEM:", props.LinkerSubsystem)
	add("-base:", "/BASE:", props.BaseAddress)
	incremental := strings.TrimSpace(props.Incremental)
	if incremental == "" {
		incremental = defaultIncremental
	}
	add("-incremental:", "/INCREMENTAL:", incremental)
	return flags
}

func isTrue(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}
