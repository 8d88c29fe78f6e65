// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"slices"
	"testing"

	"github.com/invowk/bundlemap/internal/asset"
)

func TestMemDB_RegistersParentFolders(t *testing.T) {
	t.Parallel()

	db := NewMemDB()
	db.Add("Assets/Art/Sub/a.png")

	want := []string{"Assets/Art", "Assets/Art/Sub", "Assets/Art/Sub/a.png"}
	if got := db.AllPaths(); !slices.Equal(got, want) {
		t.Errorf("AllPaths() = %v, want %v", got, want)
	}
	if !db.IsFolder("Assets/Art/Sub") || !db.IsFolder(asset.RootFolder) {
		t.Error("parent folders must be folders")
	}
	if db.KindOf("Assets/Art/Sub/a.png") != asset.KindTexture {
		t.Errorf("KindOf() = %q", db.KindOf("Assets/Art/Sub/a.png"))
	}
}

func TestMemDB_RenameKeepsReferences(t *testing.T) {
	t.Parallel()

	db := NewMemDB()
	db.Add("Assets/b.mat", "Assets/a.png")
	guid := db.Add("Assets/a.png")
	fp, _ := db.Fingerprint("Assets/a.png")

	db.Rename("Assets/a.png", "Assets/Moved/a2.png")

	deps, err := db.DirectDependencies("Assets/b.mat")
	if err != nil {
		t.Fatalf("DirectDependencies() error: %v", err)
	}
	if !slices.Equal(deps, []string{"Assets/Moved/a2.png"}) {
		t.Errorf("deps after rename = %v", deps)
	}
	if p, _ := db.PathForGUID(guid); p != "Assets/Moved/a2.png" {
		t.Errorf("PathForGUID() = %q", p)
	}
	if fp2, _ := db.Fingerprint("Assets/Moved/a2.png"); fp2 != fp {
		t.Errorf("fingerprint changed on rename: %s -> %s", fp, fp2)
	}
	if db.DependencyQueries("Assets/b.mat") != 1 {
		t.Errorf("DependencyQueries() = %d, want 1", db.DependencyQueries("Assets/b.mat"))
	}
}

func TestMemDB_RemoveDropsReferences(t *testing.T) {
	t.Parallel()

	db := NewMemDB()
	db.Add("Assets/a.png")
	db.Add("Assets/b.mat", "Assets/a.png")
	db.Remove("Assets/a.png")

	deps, err := db.DirectDependencies("Assets/b.mat")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 0 {
		t.Errorf("deps after remove = %v, want none", deps)
	}
	if _, ok := db.GUIDForPath("Assets/a.png"); ok {
		t.Error("removed asset still registered")
	}
}

func TestMemDB_TouchChangesFingerprint(t *testing.T) {
	t.Parallel()

	db := NewMemDB()
	db.Add("Assets/a.png")
	before, _ := db.Fingerprint("Assets/a.png")
	db.Touch("Assets/a.png")
	after, _ := db.Fingerprint("Assets/a.png")
	if before == after {
		t.Error("Touch() must change the fingerprint")
	}
}
