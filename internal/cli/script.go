package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"flatbuild/internal/app"
)

func newScriptCommand() *cobra.Command {
	opts := scriptOptions{}
	cmd := &cobra.Command{
		Use:   "script [project.csproj|app.bfa] [-- compiler args...]",
		Short: "Resolve the project graph and write compiler response files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd.Context(), cmd, opts, args)
		},
	}
	bindScriptFlags(cmd, &opts)
	return cmd
}

func runScript(ctx context.Context, cmd *cobra.Command, opts scriptOptions, args []string) error {
	service := newAppService()
	result, err := service.Script(ctx, scriptRequest(cmd, opts, args))
	if err != nil {
		return err
	}
	printScriptResult(result)
	return nil
}

func printScriptResult(result app.ScriptResult) {
	for _, script := range result.Scripts {
		fmt.Printf("wrote script: %s\n", script)
	}
	if result.Report != "" {
		fmt.Printf("wrote report: %s\n", result.Report)
	}
	if len(result.Unresolved) > 0 {
		fmt.Printf("unresolved packages: %d\n", len(result.Unresolved))
		for _, name := range result.Unresolved {
			fmt.Printf("- %s\n", name)
		}
	}
}
