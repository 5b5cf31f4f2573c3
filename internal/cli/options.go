package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flatbuild/internal/app"
	"flatbuild/internal/types"
)

// scriptOptions are the flags shared by every command that walks a
// project graph.
type scriptOptions struct {
	PackageRoot   string
	Framework     string
	Mode          string
	Home          string
	Output        string
	Target        string
	Script        string
	CacheDir      string
	ExclusionFile string
	RuntimeDir    string
	ResGen        string
	Report        string
	MetricsFile   string
	Includes      []string
}

func bindScriptFlags(cmd *cobra.Command, opts *scriptOptions) {
	cmd.Flags().StringVarP(&opts.PackageRoot, "package-root", "p", "", "Package store root (e.g. $HOME/.nuget/packages)")
	cmd.Flags().StringVarP(&opts.Framework, "framework", "f", app.DefaultFramework, "Target framework moniker")
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", string(types.BuildModeFlat), "Build mode: flat, tree or treed")
	cmd.Flags().StringVar(&opts.Home, "home", "", "Build root; scripts are written here (default: working directory)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file passed to the compiler")
	cmd.Flags().StringVar(&opts.Target, "target", "", "Output kind override: Exe, WinExe, Library or Shared")
	cmd.Flags().StringVar(&opts.Script, "script", app.DefaultScriptFile, "Root response file name")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "Directory for store caches (default: build root)")
	cmd.Flags().StringVar(&opts.ExclusionFile, "exclusion-file", app.DefaultExclusionFile, "Package exclusion list")
	cmd.Flags().StringVar(&opts.RuntimeDir, "runtime-dir", "", "Framework runtime directory used to derive <framework>.exclu")
	cmd.Flags().StringVar(&opts.ResGen, "resgen", "", "Resource generator used to compile .resx files")
	cmd.Flags().StringVar(&opts.Report, "report", "", "Write a YAML resolution report to this path")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write prometheus metrics to this textfile")
	cmd.Flags().StringSliceVar(&opts.Includes, "include", nil, "Argument file (.bfa or .rsp) appended to the root script; repeatable")

	_ = viper.BindPFlag("package_root", cmd.Flags().Lookup("package-root"))
	_ = viper.BindPFlag("framework", cmd.Flags().Lookup("framework"))
	_ = viper.BindPFlag("mode", cmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("home", cmd.Flags().Lookup("home"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("target", cmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("script", cmd.Flags().Lookup("script"))
	_ = viper.BindPFlag("cache_dir", cmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("exclusion_file", cmd.Flags().Lookup("exclusion-file"))
	_ = viper.BindPFlag("runtime_dir", cmd.Flags().Lookup("runtime-dir"))
	_ = viper.BindPFlag("resgen", cmd.Flags().Lookup("resgen"))
	_ = viper.BindPFlag("report", cmd.Flags().Lookup("report"))
	_ = viper.BindPFlag("metrics_file", cmd.Flags().Lookup("metrics-file"))
	_ = viper.BindPFlag("include", cmd.Flags().Lookup("include"))
}

// scriptRequest merges flags and config into a request. The first
// positional argument is the project descriptor or a .bfa argument file; arguments after "--" are
// handed to the compiler.
func scriptRequest(cmd *cobra.Command, opts scriptOptions, args []string) app.ScriptRequest {
	positional, extra := splitDashArgs(cmd, args)
	req := app.ScriptRequest{
		PackageRoot:   resolveString(cmd, opts.PackageRoot, "package_root", "package-root"),
		Framework:     resolveString(cmd, opts.Framework, "framework", "framework"),
		Mode:          types.BuildMode(strings.ToLower(resolveString(cmd, opts.Mode, "mode", "mode"))),
		Home:          resolveString(cmd, opts.Home, "home", "home"),
		OutputFile:    resolveString(cmd, opts.Output, "output", "output"),
		OutputKind:    types.OutputKind(resolveString(cmd, opts.Target, "target", "target")),
		ScriptFile:    resolveString(cmd, opts.Script, "script", "script"),
		CacheDir:      resolveString(cmd, opts.CacheDir, "cache_dir", "cache-dir"),
		ExclusionFile: resolveString(cmd, opts.ExclusionFile, "exclusion_file", "exclusion-file"),
		RuntimeDir:    resolveString(cmd, opts.RuntimeDir, "runtime_dir", "runtime-dir"),
		ResGen:        resolveString(cmd, opts.ResGen, "resgen", "resgen"),
		ReportFile:    resolveString(cmd, opts.Report, "report", "report"),
		MetricsFile:   resolveString(cmd, opts.MetricsFile, "metrics_file", "metrics-file"),
		Includes:      resolveStrings(cmd, opts.Includes, "include", "include"),
		ExtraArgs:     extra,
	}
	if len(positional) > 0 {
		req.ProjectPath = positional[0]
	}
	return req
}

func splitDashArgs(cmd *cobra.Command, args []string) ([]string, []string) {
	if cmd == nil {
		return args, nil
	}
	dash := cmd.ArgsLenAtDash()
	if dash < 0 || dash > len(args) {
		return args, nil
	}
	return args[:dash], args[dash:]
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, value []string, key string, flagName string) []string {
	if cmd == nil {
		if len(value) > 0 {
			return value
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetStringSlice(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func resolveDuration(cmd *cobra.Command, value time.Duration, key string, flagName string) time.Duration {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetDuration(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
