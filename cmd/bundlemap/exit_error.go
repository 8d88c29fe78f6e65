// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/invowk/bundlemap/internal/issue"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
// The error it wraps has already been reported.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// formatErrorForDisplay uses ActionableError.Format when the chain holds one.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// catalogEntry picks the issue documenting err: the entry for a build error code, or
// the configuration entry for configuration load failures.
func catalogEntry(err error) *issue.Issue {
	if be, ok := issue.AsBuildError(err); ok {
		if entry := issue.ForCode(be.Code); entry != nil {
			return entry
		}
		if be.Kind == issue.KindInternalInvariant {
			return issue.Get(issue.InternalInvariantId)
		}
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return issue.Get(issue.InvalidConfigurationId)
	}
	return nil
}

// reportFailure prints the catalog entry and the error to w and returns an ExitError
// so fang does not print it again.
func (a *App) reportFailure(w io.Writer, err error) error {
	if entry := catalogEntry(err); entry != nil {
		if rendered, renderErr := entry.Render("dark"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
	fmt.Fprintf(w, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.verbose))
	return &ExitError{Code: 1, Err: err}
}
