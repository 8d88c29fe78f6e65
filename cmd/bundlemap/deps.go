// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/invowk/bundlemap/internal/assetdb"
	"github.com/invowk/bundlemap/internal/depcache"
	"github.com/invowk/bundlemap/internal/pipeline"

	"github.com/spf13/cobra"
)

func newDepsCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var recursive bool
	depsCmd := &cobra.Command{
		Use:   "deps <asset-path>",
		Short: "Print the dependencies of an asset",
		Long: `Print the dependencies of an asset as resolved by the dependency cache.

Without --recursive only direct dependencies are listed. The cache file is read but
never written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.loadProject(cmd.Context(), rootFlags)
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			cache, err := openCache(cmd.Context(), app, p.cfg.Parameters())
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			deps, err := cache.Resolve(args[0], recursive)
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			for _, d := range deps {
				fmt.Fprintln(app.stdout, d)
			}
			if len(deps) == 0 {
				fmt.Fprintln(app.stderr, SubtitleStyle.Render("(no dependencies)"))
			}
			return nil
		},
	}
	depsCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "include transitive dependencies")
	return depsCmd
}

func openCache(ctx context.Context, app *App, params pipeline.Parameters) (*depcache.Cache, error) {
	db, err := assetdb.Open(ctx, params.ProjectRoot, assetdb.Options{
		Platform:        params.BuildTarget,
		ImporterVersion: params.ImporterVersion,
		Logger:          app.logger,
	})
	if err != nil {
		return nil, err
	}
	return depcache.Open(ctx, db, depcache.Options{
		Path:     params.CacheFilePath(),
		UseCache: params.UseDependencyCache,
		Logger:   app.logger,
	})
}
