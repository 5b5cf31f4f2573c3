package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flatbuild/internal/app"
)

type flattenOptions struct {
	scriptOptions
	All bool
	Dir string
}

func newFlattenCommand() *cobra.Command {
	opts := flattenOptions{}
	cmd := &cobra.Command{
		Use:   "flatten [project.csproj] [-- compiler args...]",
		Short: "Copy the merged build set into <name>.flat and write <name>.bfa",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlatten(cmd.Context(), cmd, opts, args)
		},
	}
	bindScriptFlags(cmd, &opts.scriptOptions)
	cmd.Flags().BoolVar(&opts.All, "all", false, "Also copy package and native libraries")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Destination directory (default: <home>/<name>.flat)")
	_ = viper.BindPFlag("flatten_all", cmd.Flags().Lookup("all"))
	_ = viper.BindPFlag("flatten_dir", cmd.Flags().Lookup("dir"))
	return cmd
}

func runFlatten(ctx context.Context, cmd *cobra.Command, opts flattenOptions, args []string) error {
	service := newAppService()
	result, err := service.Flatten(ctx, app.FlattenRequest{
		ScriptRequest: scriptRequest(cmd, opts.scriptOptions, args),
		All:           resolveBool(cmd, opts.All, "flatten_all", "all"),
		OutputDir:     resolveString(cmd, opts.Dir, "flatten_dir", "dir"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("flattened into: %s\n", result.Dir)
	fmt.Printf("sources: %d, resources: %d, libraries: %d\n", result.Sources, result.Resources, result.Libraries)
	fmt.Printf("wrote script: %s\n", result.Script)
	return nil
}
