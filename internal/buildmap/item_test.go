// SPDX-License-Identifier: MPL-2.0

package buildmap

import (
	"errors"
	"testing"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/issue"

	"github.com/google/go-cmp/cmp"
)

func TestAssignment_SetOnce(t *testing.T) {
	t.Parallel()

	it := newDependencyItem(asset.Node{Path: "Assets/a.png"})
	if it.HasBundle() {
		t.Fatal("new item must be unassigned")
	}
	if err := it.AssignBundle(""); !errors.Is(err, ErrEmptyBundleName) {
		t.Fatalf("AssignBundle(\"\") error = %v, want ErrEmptyBundleName", err)
	}
	if err := it.AssignBundle("x.bundle"); err != nil {
		t.Fatalf("AssignBundle() error: %v", err)
	}
	err := it.AssignBundle("y.bundle")
	if !errors.Is(err, ErrBundleReassigned) || !errors.Is(err, issue.ErrInternalInvariant) {
		t.Fatalf("second AssignBundle() error = %v, want reassignment invariant", err)
	}
	if got := it.BundleName(); got != "x.bundle" {
		t.Errorf("BundleName() = %q, want first assignment kept", got)
	}
}

func TestItem_References(t *testing.T) {
	t.Parallel()

	it := newDependencyItem(asset.Node{Path: "Assets/shared.png"})
	for _, b := range []string{"x.bundle", "y.bundle", "x.bundle"} {
		if err := it.addReference(b); err != nil {
			t.Fatalf("addReference(%q) error: %v", b, err)
		}
	}
	if it.ReferenceCount() != 2 {
		t.Errorf("ReferenceCount() = %d, want 2 distinct bundles", it.ReferenceCount())
	}
	if diff := cmp.Diff([]string{"x.bundle", "y.bundle"}, it.ReferenceBundles()); diff != "" {
		t.Errorf("ReferenceBundles() mismatch (-want +got):\n%s", diff)
	}
	if err := it.addReference(""); !errors.Is(err, ErrEmptyReference) {
		t.Errorf("addReference(\"\") error = %v, want ErrEmptyReference", err)
	}
}

func TestItem_DependenciesSetOnce(t *testing.T) {
	t.Parallel()

	it := newDependencyItem(asset.Node{Path: "Assets/b.mat"})
	if err := it.setDependencies(nil); err != nil {
		t.Fatalf("setDependencies() error: %v", err)
	}
	if err := it.setDependencies(nil); !errors.Is(err, ErrDependenciesReassigned) {
		t.Errorf("second setDependencies() error = %v, want ErrDependenciesReassigned", err)
	}
}

func TestItem_AddTagsDeduplicates(t *testing.T) {
	t.Parallel()

	it := newDependencyItem(asset.Node{Path: "Assets/a.png"})
	it.addTags([]string{"ui", "base", "ui"})
	if diff := cmp.Diff([]string{"ui", "base"}, it.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
}
