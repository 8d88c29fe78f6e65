// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"errors"
	"slices"

	"github.com/invowk/bundlemap/internal/issue"
)

// ErrBuildResultMismatch is returned when the compiler built a different bundle set
// than was planned.
var ErrBuildResultMismatch = errors.New("built bundles differ from planned bundles")

// Verify compares planned bundle names with the compiled ones. Engine-internal
// bundles listed in builtin are not expected in the plan. Every difference is
// recorded as a warning; any difference fails the build.
func Verify(planned []string, res *Result, builtin []string, diags *issue.Diagnostics) error {
	built := res.BundleNames()
	mismatches := 0
	for _, name := range planned {
		if _, ok := res.Bundles[name]; !ok {
			diags.Warn(issue.CodeMissingBundle, name, "planned bundle was not built: %s", name)
			mismatches++
		}
	}
	for _, name := range built {
		if slices.Contains(builtin, name) || slices.Contains(planned, name) {
			continue
		}
		diags.Warn(issue.CodeUnexpectedBundle, name, "built bundle was not planned: %s", name)
		mismatches++
	}
	if mismatches > 0 {
		return issue.PackingInconsistency(issue.CodeBuildResultMismatch, "", ErrBuildResultMismatch,
			"%d bundle(s) differ between plan and build", mismatches)
	}
	return nil
}
