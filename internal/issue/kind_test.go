// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"testing"
)

var errSpecific = errors.New("specific failure")

func TestBuildError_UnwrapsKindAndSentinel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *BuildError
		kind error
	}{
		{"configuration", Configuration(CodeDuplicateAddress, "a", errSpecific, "dup"), ErrConfiguration},
		{"cache", CacheInconsistency(CodeUnknownAsset, "a", errSpecific, "unknown"), ErrCacheInconsistency},
		{"packing", PackingInconsistency(CodeHashConflict, "b", errSpecific, "conflict"), ErrPackingInconsistency},
		{"invariant", InternalInvariant(CodeDuplicateItem, "b", errSpecific, "dup"), ErrInternalInvariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("task failed: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("errors.Is(kind sentinel) = false for %v", tt.err)
			}
			if !errors.Is(wrapped, errSpecific) {
				t.Errorf("errors.Is(specific sentinel) = false for %v", tt.err)
			}
			be, ok := AsBuildError(wrapped)
			if !ok || be != tt.err {
				t.Errorf("AsBuildError() = %v, %v", be, ok)
			}
		})
	}
}

func TestBuildError_Error(t *testing.T) {
	t.Parallel()

	err := PackingInconsistency(CodeHashConflict, "ui.bundle", nil, "bundle hash %s already used", "abc")
	want := "packing_inconsistency [hash_conflict]: bundle hash abc already used (ui.bundle)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if len(err.Unwrap()) != 1 {
		t.Errorf("Unwrap() without sentinel should return only the kind sentinel, got %v", err.Unwrap())
	}
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()

	var nilDiags *Diagnostics
	nilDiags.Warn(CodeStrayBundle, "x", "ignored")
	if nilDiags.All() != nil {
		t.Error("nil Diagnostics should record nothing")
	}

	d := NewDiagnostics(nil)
	d.Warn(CodeStrayBundle, "a.bundle", "stray bundle %d", 3)
	d.Info(CodeBundleCycle, "", "cycle")
	d.Warn(CodeStrayBundle, "b.bundle", "stray bundle %d", 4)

	all := d.All()
	if len(all) != 3 {
		t.Fatalf("All() len = %d, want 3", len(all))
	}
	if all[0].Message != "stray bundle 3" || all[0].Severity != SeverityWarning {
		t.Errorf("first diagnostic = %+v", all[0])
	}
	if d.Count(CodeStrayBundle) != 2 {
		t.Errorf("Count(stray) = %d, want 2", d.Count(CodeStrayBundle))
	}
}
