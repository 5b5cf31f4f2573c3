package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flatbuild/internal/app"
	"flatbuild/internal/types"
)

type buildOptions struct {
	scriptOptions
	IL             bool
	Compiler       string
	Linker         string
	PreBuild       string
	PostBuild      string
	CompileTimeout time.Duration
	WaitTimeout    time.Duration
}

func newBuildCommand() *cobra.Command {
	opts := buildOptions{}
	cmd := &cobra.Command{
		Use:   "build [project.csproj|app.bfa] [-- compiler args...]",
		Short: "Write response files and compile them with bflat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd, opts, args)
		},
	}
	bindScriptFlags(cmd, &opts.scriptOptions)

	cmd.Flags().BoolVar(&opts.IL, "il", false, "Compile the root project to IL (build-il)")
	cmd.Flags().StringVar(&opts.Compiler, "compiler", app.DefaultCompiler, "Compiler executable")
	cmd.Flags().StringVar(&opts.Linker, "linker", "", "External linker; the compiler then only emits an object file")
	cmd.Flags().StringVar(&opts.PreBuild, "prebuild", "", "Command run before compiling")
	cmd.Flags().StringVar(&opts.PostBuild, "postbuild", "", "Command run after a successful build")
	cmd.Flags().DurationVar(&opts.CompileTimeout, "compile-timeout", 0, "Time budget per compiler or linker run (0 = none)")
	cmd.Flags().DurationVar(&opts.WaitTimeout, "wait-timeout", app.DefaultWaitTimeout, "How long to wait for a dependency artifact")

	_ = viper.BindPFlag("build_il", cmd.Flags().Lookup("il"))
	_ = viper.BindPFlag("compiler", cmd.Flags().Lookup("compiler"))
	_ = viper.BindPFlag("linker", cmd.Flags().Lookup("linker"))
	_ = viper.BindPFlag("prebuild", cmd.Flags().Lookup("prebuild"))
	_ = viper.BindPFlag("postbuild", cmd.Flags().Lookup("postbuild"))
	_ = viper.BindPFlag("compile_timeout", cmd.Flags().Lookup("compile-timeout"))
	_ = viper.BindPFlag("wait_timeout", cmd.Flags().Lookup("wait-timeout"))

	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, opts buildOptions, args []string) error {
	verb := types.VerbBuild
	if resolveBool(cmd, opts.IL, "build_il", "il") {
		verb = types.VerbBuildIL
	}
	service := newAppService()
	result, err := service.Build(ctx, app.BuildRequest{
		ScriptRequest:  scriptRequest(cmd, opts.scriptOptions, args),
		Verb:           verb,
		Compiler:       resolveString(cmd, opts.Compiler, "compiler", "compiler"),
		Linker:         resolveString(cmd, opts.Linker, "linker", "linker"),
		PreBuild:       resolveString(cmd, opts.PreBuild, "prebuild", "prebuild"),
		PostBuild:      resolveString(cmd, opts.PostBuild, "postbuild", "postbuild"),
		CompileTimeout: resolveDuration(cmd, opts.CompileTimeout, "compile_timeout", "compile-timeout"),
		WaitTimeout:    resolveDuration(cmd, opts.WaitTimeout, "wait_timeout", "wait-timeout"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("built: %s (%d scripts)\n", result.RootProject, len(result.Scripts))
	if result.LinkScript != "" {
		fmt.Printf("linked with: %s\n", result.LinkScript)
	}
	if result.Report != "" {
		fmt.Printf("wrote report: %s\n", result.Report)
	}
	return nil
}
