// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/bundlemap/internal/report"

	"github.com/spf13/cobra"
)

func newDiffCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "Show a unified diff of two debug manifests",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := report.DiffFiles(args[0], args[1])
			if err != nil {
				return app.reportFailure(app.stderr, err)
			}
			if diff == "" {
				fmt.Fprintln(app.stdout, SuccessStyle.Render("manifests are identical"))
				return nil
			}
			fmt.Fprint(app.stdout, diff)
			return nil
		},
	}
}
