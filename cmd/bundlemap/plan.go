// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/invowk/bundlemap/internal/buildmap"
	"github.com/invowk/bundlemap/internal/pipeline"

	"github.com/spf13/cobra"
)

func newPlanCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var simulate bool
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the bundle grouping without building",
		Long: `Collect the package and resolve its dependency graph, then print every bundle
with the assets packed into it. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.loadProject(cmd.Context(), rootFlags)
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			bc := app.buildContext(p)
			if simulate {
				bc.Params.BuildMode = pipeline.ModeSimulate
			}
			if err := pipeline.Run(cmd.Context(), bc, pipeline.PlanTasks()); err != nil {
				return app.reportFailure(app.stderr, err)
			}
			renderPlan(app.stdout, bc.Graph)
			return nil
		},
	}
	planCmd.Flags().BoolVar(&simulate, "simulate", false, "plan as a simulated build (no dependency collection)")
	return planCmd
}

func renderPlan(w io.Writer, graph *buildmap.Result) {
	groups := graph.Aggregator.Grouping()
	for _, b := range groups {
		fmt.Fprintf(w, "%s %s\n", BundleStyle.Render(b.BundleName), SubtitleStyle.Render(fmt.Sprintf("(%d)", len(b.AssetPaths))))
		for _, p := range b.AssetPaths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	fmt.Fprintf(w, "\n%d bundle(s), %d asset file(s)", len(groups), graph.AssetFileCount)
	if n := len(graph.IndependentAssets); n > 0 {
		fmt.Fprintf(w, ", %s", WarningStyle.Render(fmt.Sprintf("%d independent asset(s) pruned", n)))
	}
	fmt.Fprintln(w)
}
