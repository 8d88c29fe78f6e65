// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/invowk/bundlemap/internal/depcache"

	"github.com/spf13/cobra"
)

func newCacheCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the dependency cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the dependency cache file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.loadProject(cmd.Context(), rootFlags)
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			path := p.cfg.Parameters().CacheFilePath()
			if err := depcache.RemoveFile(path); err != nil {
				return app.reportFailure(app.stderr, err)
			}
			fmt.Fprintf(app.stdout, "%s Removed %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Summarize the dependency cache file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.loadProject(cmd.Context(), rootFlags)
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			path := p.cfg.Parameters().CacheFilePath()
			st, err := depcache.Inspect(path)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render("Cache file"), SubtitleStyle.Render("(none, run a build first)"))
				return nil
			}
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render("Cache file"), st.Path)
			fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render("Format"), st.Version)
			fmt.Fprintf(app.stdout, "%s: %d\n", KeyStyle.Render("Entries"), st.Entries)
			fmt.Fprintf(app.stdout, "%s: %d\n", KeyStyle.Render("Edges"), st.Edges)
			fmt.Fprintf(app.stdout, "%s: %d bytes\n", KeyStyle.Render("Size"), st.Size)
			return nil
		},
	})

	return cacheCmd
}
