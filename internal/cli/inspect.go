package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flatbuild/internal/app"
)

type inspectOptions struct {
	Report string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect [report.yaml]",
		Short: "Summarize a resolution report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.Report, "report", "", "Resolution report path")
	_ = viper.BindPFlag("report", cmd.Flags().Lookup("report"))
	return cmd
}

func runInspect(cmd *cobra.Command, opts inspectOptions, args []string) error {
	path := resolveString(cmd, opts.Report, "report", "report")
	if len(args) > 0 {
		path = args[0]
	}
	service := newAppService()
	result, err := service.Inspect(app.InspectRequest{ReportPath: path})
	if err != nil {
		return err
	}

	fmt.Printf("root: %s (framework=%s, mode=%s)\n", result.Root, result.Framework, result.Mode)
	for _, unit := range result.Units {
		label := unit.Project
		if unit.Dependency {
			label += " -> " + unit.Artifact
		}
		fmt.Printf("- %s: %d sources, %d packages\n", label, unit.Sources, len(unit.Packages))
		if len(unit.Packages) > 0 {
			fmt.Printf("  %s\n", strings.Join(unit.Packages, ", "))
		}
		if len(unit.Unresolved) > 0 {
			fmt.Printf("  unresolved: %s\n", strings.Join(unit.Unresolved, ", "))
		}
	}
	fmt.Printf("packages: %d, unresolved: %d\n", len(result.Packages), len(result.Unresolved))
	return nil
}
