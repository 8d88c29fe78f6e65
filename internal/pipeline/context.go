// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"log/slog"
	"time"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/buildmap"
	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/compiler"
	"github.com/invowk/bundlemap/internal/depcache"
	"github.com/invowk/bundlemap/internal/issue"
	"github.com/invowk/bundlemap/internal/manifest"
	"github.com/invowk/bundlemap/internal/report"
	"github.com/invowk/bundlemap/internal/rules"
)

type (
	// Context owns every piece of state of one build. Tasks read the inputs and fill
	// the outputs in order; nothing is shared between builds.
	Context struct {
		Params  Parameters
		Package collect.Package
		// UniqueBundleName prefixes bundle names with the package name.
		UniqueBundleName bool

		// Rules defaults to rules.NewRegistry().
		Rules *rules.Registry
		// Compiler defaults to the zip compiler over the project root.
		Compiler compiler.Compiler
		// PreShare and PostShare customize shared-bundle assignment (optional).
		PreShare  buildmap.ShareHook
		PostShare buildmap.ShareHook

		ToolVersion string
		Logger      *slog.Logger
		Diagnostics *issue.Diagnostics
		// Now defaults to time.Now.
		Now func() time.Time

		// Outputs.
		Started    time.Time
		DB         asset.Database
		Cache      *depcache.Cache
		Collection *collect.Result
		Graph      *buildmap.Result
		Compiled   *compiler.Result
		Manifest   *manifest.Manifest
		Files      manifest.Files
		Report     *report.Report
		ReportPath string
		DiffPath   string

		encryption compiler.EncryptionService
		process    manifest.Service
	}
)

func (bc *Context) init() {
	if bc.Logger == nil {
		bc.Logger = slog.New(slog.DiscardHandler)
	}
	if bc.Diagnostics == nil {
		bc.Diagnostics = issue.NewDiagnostics(bc.Logger)
	}
	if bc.Rules == nil {
		bc.Rules = rules.NewRegistry()
	}
	if bc.Now == nil {
		bc.Now = time.Now
	}
}

func (bc *Context) simulate() bool { return bc.Params.BuildMode == ModeSimulate }

// builtinBundles returns the engine-internal bundle names for the build.
func (bc *Context) builtinBundles() []string {
	if bc.Params.BuiltinBundleNames != nil {
		return bc.Params.BuiltinBundleNames
	}
	cmd := bc.Collection.Command
	return []string{cmd.ShadersBundleName(), cmd.MonoScriptsBundleName()}
}
