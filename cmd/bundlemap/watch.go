// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/invowk/bundlemap/internal/pipeline"
	"github.com/invowk/bundlemap/internal/watch"

	"github.com/spf13/cobra"
)

type watchFlagValues struct {
	build    bool
	debounce time.Duration
	patterns []string
}

func newWatchCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &watchFlagValues{}
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-plan (or re-simulate) when assets change",
		Long: `Run 'plan' once, then again every time files under Assets/ change.

With --build a simulated build runs instead, refreshing the simulated manifest.
The project file is reloaded on every run. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, app, rootFlags, flags)
		},
	}
	watchCmd.Flags().BoolVar(&flags.build, "build", false, "run a simulated build instead of a plan")
	watchCmd.Flags().DurationVar(&flags.debounce, "debounce", 0, "quiet period before re-running (default 500ms)")
	watchCmd.Flags().StringSliceVar(&flags.patterns, "pattern", nil, "glob of paths that trigger a run (default Assets/**)")
	return watchCmd
}

func runWatch(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *watchFlagValues) error {
	p, err := app.loadProject(cmd.Context(), rootFlags)
	if err != nil {
		return app.reportFailure(app.stderr, err)
	}
	root := p.cfg.ProjectRoot
	params := p.cfg.Parameters()

	var ignore []string
	if rel, relErr := filepath.Rel(root, params.OutputRoot); relErr == nil && filepath.IsLocal(rel) {
		ignore = append(ignore, filepath.ToSlash(rel)+"/**")
	}

	run := func(ctx context.Context) error {
		current, err := app.loadProject(ctx, rootFlags)
		if err != nil {
			return err
		}
		bc := app.buildContext(current)
		if !flags.build {
			if err := pipeline.Run(ctx, bc, pipeline.PlanTasks()); err != nil {
				return err
			}
			renderPlan(app.stdout, bc.Graph)
			return nil
		}
		bc.Params.BuildMode = pipeline.ModeSimulate
		if bc.Params.PackageVersion == "" {
			bc.Params.PackageVersion = "Simulate"
		}
		if err := pipeline.Build(ctx, bc); err != nil {
			return err
		}
		renderBuildSummary(app.stdout, bc)
		return nil
	}

	fmt.Fprintf(app.stdout, "%s Watch mode: initial run\n", BundleStyle.Render("→"))
	if err := run(cmd.Context()); err != nil {
		fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("!"), formatErrorForDisplay(err, app.verbose))
	}

	w, err := watch.New(watch.Config{
		Patterns: flags.patterns,
		Ignore:   ignore,
		Debounce: flags.debounce,
		BaseDir:  root,
		Logger:   app.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "\n%s %d change(s), re-running\n", BundleStyle.Render("→"), len(changed))
			if err := run(ctx); err != nil {
				fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("!"), formatErrorForDisplay(err, app.verbose))
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	fmt.Fprintf(app.stdout, "\n%s Watching %s (Ctrl+C to stop)...\n", BundleStyle.Render("→"), root)
	return w.Run(cmd.Context())
}
