// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/invowk/bundlemap/internal/config"
	"github.com/invowk/bundlemap/internal/rules"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the project file",
		Long: `Manage the project file.

The project file is 'bundlemap.cue' in the project directory, or the file given with
--config. Any key can be overridden with a BUNDLEMAP_* environment variable, for example
BUNDLEMAP_BUILD_OUTPUT_ROOT=/tmp/bundles.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var showRules, showSchema bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showSchema {
				fmt.Fprint(app.stdout, config.Schema())
				return nil
			}
			if showRules {
				printRules(app)
				return nil
			}
			p, err := app.loadProject(cmd.Context(), rootFlags)
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			source := p.path
			if source == "" {
				source = "(using defaults)"
			}
			fmt.Fprintf(app.stdout, "%s\n%s: %s\n\n", TitleStyle.Render("Current Configuration"), KeyStyle.Render("Project file"), source)
			fmt.Fprint(app.stdout, config.GenerateCUE(p.cfg))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showRules, "rules", false, "list the registered collection rules")
	showCmd.Flags().BoolVar(&showSchema, "schema", false, "print the CUE schema of the project file")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a project file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := projectFilePath(rootFlags)
			if err := config.WriteDefault(path); err != nil {
				return app.reportFailure(app.stderr, fmt.Errorf("failed to create project file: %w", err))
			}
			fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the project file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(app.stdout, projectFilePath(rootFlags))
			return nil
		},
	})

	return cfgCmd
}

func projectFilePath(flags *rootFlagValues) string {
	if flags.configPath != "" {
		return flags.configPath
	}
	dir := flags.projectDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, config.FileName)
}

func printRules(app *App) {
	reg := rules.NewRegistry()
	for _, cat := range []rules.Category{rules.CategoryFilter, rules.CategoryAddress, rules.CategoryPack, rules.CategoryIgnore} {
		fmt.Fprintln(app.stdout, TitleStyle.Render(string(cat)))
		for _, name := range reg.Names(cat) {
			fmt.Fprintf(app.stdout, "  %s\n", name)
		}
	}
}
