// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "resolve build map"},
			expected: "failed to resolve build map",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "load project configuration", Resource: "bundlemap.cue"},
			expected: "failed to load project configuration: bundlemap.cue",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load project configuration",
				Resource:  "bundlemap.cue",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to load project configuration: bundlemap.cue: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("root cause")
	err := NewErrorContext().
		WithOperation("build package").
		WithSuggestion("Bump the package version").
		Wrap(WrapWithContext(root, "write manifest", "out/pkg.bytes")).
		Build()

	plain := err.Format(false)
	if !strings.Contains(plain, "  • Bump the package version") {
		t.Errorf("Format(false) missing suggestion:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain:") {
		t.Errorf("Format(false) should not include the error chain:\n%s", plain)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") || !strings.Contains(verbose, "2. root cause") {
		t.Errorf("Format(true) missing error chain:\n%s", verbose)
	}
	if !errors.Is(err, root) {
		t.Error("errors.Is should find the root cause")
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	if err := NewErrorContext().WithResource("x").BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil", err)
	}
	if err := WrapWithContext(nil, "op", "res"); err != nil {
		t.Errorf("WrapWithContext(nil) = %v, want nil", err)
	}
}
