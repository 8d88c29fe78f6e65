// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/invowk/bundlemap/internal/manifest"
	"github.com/invowk/bundlemap/internal/pipeline"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

type buildFlagValues struct {
	simulate   bool
	version    string
	note       string
	clearCache bool
}

func newBuildCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the package: bundles, manifest and report",
		Long: `Build the package described by the project file.

An archive build compiles the bundles, writes the manifest files and the audit report to
{output_root}/{build_target}/{package}/{version}, then saves the dependency cache.
A simulated build resolves the same grouping without compiling and replaces any previous
simulated output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, app, rootFlags, flags)
		},
	}
	buildCmd.Flags().BoolVar(&flags.simulate, "simulate", false, "resolve and write the manifest without compiling bundles")
	buildCmd.Flags().StringVar(&flags.version, "version", "", "package version (overrides build.package_version)")
	buildCmd.Flags().StringVar(&flags.note, "note", "", "package note (defaults to the build time)")
	buildCmd.Flags().BoolVar(&flags.clearCache, "clear-cache", false, "delete intermediate archives and ignore the dependency cache")
	return buildCmd
}

func runBuild(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *buildFlagValues) error {
	p, err := app.loadProject(cmd.Context(), rootFlags)
	if err != nil {
		return app.reportFailure(app.stderr, err)
	}
	bc := app.buildContext(p)
	if flags.version != "" {
		bc.Params.PackageVersion = flags.version
	}
	if flags.note != "" {
		bc.Params.PackageNote = flags.note
	}
	if flags.clearCache {
		bc.Params.ClearBuildCache = true
	}
	if flags.simulate {
		bc.Params.BuildMode = pipeline.ModeSimulate
		if bc.Params.PackageVersion == "" {
			bc.Params.PackageVersion = "Simulate"
		}
	}

	if err := pipeline.Build(cmd.Context(), bc); err != nil {
		return app.reportFailure(app.stderr, err)
	}

	renderBuildSummary(app.stdout, bc)
	return nil
}

func renderBuildSummary(w io.Writer, bc *pipeline.Context) {
	m := bc.Manifest
	fmt.Fprintf(w, "%s %s %s (%s)\n\n", SuccessStyle.Render("✓"), TitleStyle.Render(m.PackageName),
		m.PackageVersion, bc.Params.BuildMode)
	fmt.Fprintln(w, bundleTable(m))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Manifest:"), bc.Files.Binary)
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Report:  "), bc.ReportPath)
	if bc.DiffPath != "" {
		fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Diff:    "), bc.DiffPath)
	}
	if n := len(bc.Diagnostics.All()); n > 0 {
		fmt.Fprintf(w, "%s %d warning(s), see the report\n", WarningStyle.Render("!"), n)
	}
}

func bundleTable(m *manifest.Manifest) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		Headers("BUNDLE", "SIZE", "HASH", "DEPENDS", "TAGS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for _, b := range m.BundleList {
		hash := b.FileHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		t.Row(b.BundleName, strconv.FormatInt(b.FileSize, 10), hash,
			strconv.Itoa(len(b.DependBundleIDs)), fmt.Sprint(b.Tags))
	}
	return t.Render()
}
