package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flatbuild/internal/app"
)

type cacheRefreshOptions struct {
	PackageRoot string
	CacheDir    string
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the package store caches",
	}
	cmd.AddCommand(newCacheRefreshCommand())
	return cmd
}

func newCacheRefreshCommand() *cobra.Command {
	opts := cacheRefreshOptions{}
	cmd := &cobra.Command{
		Use:   "refresh [package-root]",
		Short: "Rescan the package store and rewrite packages.cache and nuspecs.cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheRefresh(cmd.Context(), cmd, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.PackageRoot, "package-root", "p", "", "Package store root")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "Directory for store caches (default: working directory)")
	_ = viper.BindPFlag("package_root", cmd.Flags().Lookup("package-root"))
	_ = viper.BindPFlag("cache_dir", cmd.Flags().Lookup("cache-dir"))
	return cmd
}

func runCacheRefresh(ctx context.Context, cmd *cobra.Command, opts cacheRefreshOptions, args []string) error {
	root := resolveString(cmd, opts.PackageRoot, "package_root", "package-root")
	if len(args) > 0 {
		root = args[0]
	}
	service := newAppService()
	result, err := service.RefreshCache(ctx, app.CacheRefreshRequest{
		PackageRoot: root,
		CacheDir:    resolveString(cmd, opts.CacheDir, "cache_dir", "cache-dir"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("cached %d library and %d manifest directories in %s\n", result.LibDirs, result.ManifestDirs, result.CacheDir)
	return nil
}
