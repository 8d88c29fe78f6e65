// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bundlemap CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	verbose    bool
	configPath string
	projectDir string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}
	rootCmd := &cobra.Command{
		Use:   "bundlemap",
		Short: "Asset bundle planner and manifest builder",
		Long: TitleStyle.Render("bundlemap") + SubtitleStyle.Render(" - asset bundle planner and manifest builder") + `

bundlemap collects the assets of a project, resolves their dependency graph,
assigns every asset to a bundle and writes the package manifest.

The project is described by 'bundlemap.cue' in the project directory.

` + SubtitleStyle.Render("Examples:") + `
  bundlemap config init               Create a project file
  bundlemap plan                      Show the bundle grouping
  bundlemap build --version 1.0.0     Build version 1.0.0
  bundlemap build --simulate          Write a simulated manifest
  bundlemap deps Assets/UI/main.prefab -r`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			app.setVerbose(flags.verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "project file (default is ./bundlemap.cue)")
	rootCmd.PersistentFlags().StringVarP(&flags.projectDir, "project", "C", "", "project directory (default is the working directory)")

	rootCmd.AddCommand(newBuildCommand(app, flags))
	rootCmd.AddCommand(newPlanCommand(app, flags))
	rootCmd.AddCommand(newDepsCommand(app, flags))
	rootCmd.AddCommand(newCacheCommand(app, flags))
	rootCmd.AddCommand(newDiffCommand(app))
	rootCmd.AddCommand(newWatchCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	)
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(1)
}

// handleError prints errors fang receives, except ExitErrors, which were reported
// by the command that returned them.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
