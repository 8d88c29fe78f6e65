// SPDX-License-Identifier: MPL-2.0

package depcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/invowk/bundlemap/internal/issue"
	"github.com/invowk/bundlemap/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

func chainDB() *testutil.MemDB {
	db := testutil.NewMemDB()
	db.Add("Assets/c.png")
	db.Add("Assets/b.mat", "Assets/c.png", "Assets/Art")
	db.Add("Assets/a.prefab", "Assets/b.mat")
	db.AddFolder("Assets/Art")
	return db
}

func mustOpen(t *testing.T, db *testutil.MemDB, opts Options) *Cache {
	t.Helper()
	c, err := Open(context.Background(), db, opts)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return c
}

func TestResolve(t *testing.T) {
	t.Parallel()

	c := mustOpen(t, chainDB(), Options{})

	tests := []struct {
		name      string
		path      string
		recursive bool
		want      []string
	}{
		{"direct", "Assets/a.prefab", false, []string{"Assets/b.mat"}},
		{"recursive", "Assets/a.prefab", true, []string{"Assets/b.mat", "Assets/c.png"}},
		{"folders skipped", "Assets/b.mat", false, []string{"Assets/c.png"}},
		{"leaf", "Assets/c.png", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := c.Resolve(tt.path, tt.recursive)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_CycleSafe(t *testing.T) {
	t.Parallel()

	db := testutil.NewMemDB()
	db.Add("Assets/a.mat", "Assets/b.mat")
	db.Add("Assets/b.mat", "Assets/a.mat")
	c := mustOpen(t, db, Options{})

	got, err := c.Resolve("Assets/a.mat", true)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if diff := cmp.Diff([]string{"Assets/b.mat"}, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_UnknownAsset(t *testing.T) {
	t.Parallel()

	c := mustOpen(t, chainDB(), Options{})
	_, err := c.Resolve("Assets/never.png", true)
	if !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownAsset", err)
	}
	if !errors.Is(err, issue.ErrCacheInconsistency) {
		t.Errorf("Resolve() error must be a cache inconsistency, got %v", err)
	}
}

func TestResolve_DependencyMovedAfterScan(t *testing.T) {
	t.Parallel()

	db := chainDB()
	c := mustOpen(t, db, Options{})
	db.Rename("Assets/b.mat", "Assets/Moved/b.mat")

	_, err := c.Resolve("Assets/a.prefab", true)
	if !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownAsset", err)
	}
	be, ok := issue.AsBuildError(err)
	if !ok || be.Resource != "Assets/Moved/b.mat" {
		t.Errorf("error resource = %+v, want the moved path", be)
	}
}

func TestOpen_RenameStability(t *testing.T) {
	t.Parallel()

	cacheFile := filepath.Join(t.TempDir(), "deps.db")
	db := chainDB()
	first := mustOpen(t, db, Options{Path: cacheFile, UseCache: true})
	if err := first.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	queries := db.DependencyQueries("Assets/b.mat")

	db.Rename("Assets/c.png", "Assets/Textures/c_renamed.png")

	second := mustOpen(t, db, Options{Path: cacheFile, UseCache: true})
	if got := db.DependencyQueries("Assets/b.mat"); got != queries {
		t.Errorf("b.mat recomputed after renaming its dependency: queries %d -> %d", queries, got)
	}
	got, err := second.Resolve("Assets/a.prefab", true)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := []string{"Assets/b.mat", "Assets/Textures/c_renamed.png"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() after rename mismatch (-want +got):\n%s", diff)
	}

	st := second.Stats()
	if st.Dropped != 1 {
		t.Errorf("Stats().Dropped = %d, want 1 (the old path)", st.Dropped)
	}
	if st.Reused == 0 || st.Discarded {
		t.Errorf("Stats() = %+v, want reused entries", st)
	}
}

func TestOpen_FingerprintChangeRecomputes(t *testing.T) {
	t.Parallel()

	cacheFile := filepath.Join(t.TempDir(), "deps.db")
	db := chainDB()
	first := mustOpen(t, db, Options{Path: cacheFile, UseCache: true})
	if err := first.Save(); err != nil {
		t.Fatal(err)
	}

	db.Add("Assets/d.png")
	db.SetDeps("Assets/b.mat", "Assets/d.png")

	second := mustOpen(t, db, Options{Path: cacheFile, UseCache: true})
	got, err := second.Resolve("Assets/a.prefab", true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Assets/b.mat", "Assets/d.png"}, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
	if st := second.Stats(); st.Recomputed != 2 {
		t.Errorf("Stats().Recomputed = %d, want 2 (b.mat and the new d.png)", st.Recomputed)
	}
}

func TestOpen_MissingDependencyWarns(t *testing.T) {
	t.Parallel()

	cacheFile := filepath.Join(t.TempDir(), "deps.db")
	db := chainDB()
	first := mustOpen(t, db, Options{Path: cacheFile, UseCache: true})
	if err := first.Save(); err != nil {
		t.Fatal(err)
	}

	// b.mat keeps its fingerprint, so its cached edge to c.png survives the delete.
	db.Remove("Assets/c.png")
	diags := issue.NewDiagnostics(nil)
	second := mustOpen(t, db, Options{Path: cacheFile, UseCache: true, Diagnostics: diags})

	got, err := second.Resolve("Assets/b.mat", true)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Resolve() = %v, want empty", got)
	}
	if diags.Count(issue.CodeMissingDependency) != 1 {
		t.Errorf("missing dependency warnings = %d, want 1", diags.Count(issue.CodeMissingDependency))
	}
}

func TestOpen_DiscardsUnreadableFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"version mismatch", []byte{3, '9', '.', '9', 0, 0, 0, 0}},
		{"truncated", []byte{3, '1', '.', '0', 5, 0}},
		{"trailing data", []byte{3, '1', '.', '0', 0, 0, 0, 0, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cacheFile := filepath.Join(t.TempDir(), "deps.db")
			if err := os.WriteFile(cacheFile, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			c := mustOpen(t, chainDB(), Options{Path: cacheFile, UseCache: true})

			st := c.Stats()
			if !st.Discarded {
				t.Error("Stats().Discarded = false, want true")
			}
			if st.Recomputed != c.Len() {
				t.Errorf("Recomputed = %d, want every entry (%d)", st.Recomputed, c.Len())
			}
			if _, err := os.Stat(cacheFile); !os.IsNotExist(err) {
				t.Errorf("unreadable cache file not deleted: %v", err)
			}
		})
	}
}

func TestOpen_IgnoresFileWhenCacheDisabled(t *testing.T) {
	t.Parallel()

	cacheFile := filepath.Join(t.TempDir(), "deps.db")
	db := chainDB()
	first := mustOpen(t, db, Options{Path: cacheFile, UseCache: true})
	if err := first.Save(); err != nil {
		t.Fatal(err)
	}
	second := mustOpen(t, db, Options{Path: cacheFile})
	if st := second.Stats(); st.Loaded != 0 || st.Reused != 0 {
		t.Errorf("Stats() = %+v, want nothing loaded", st)
	}
}

func TestOpen_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Open(ctx, chainDB(), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Open() error = %v, want context.Canceled", err)
	}
}
