// SPDX-License-Identifier: MPL-2.0

package assetdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/issue"
)

const (
	guidTex = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	guidMat = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	guidDir = "cccccccccccccccccccccccccccccccc"
)

// writeAsset writes an asset file and, when guid is non-empty, its sidecar.
func writeAsset(t *testing.T, root, rel, content, guid string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	if guid != "" {
		writeMetaFile(t, p, guid)
	}
}

func writeMetaFile(t *testing.T, absPath, guid string) {
	t.Helper()
	meta := "fileFormatVersion: 2\nguid: " + guid + "\n"
	if err := os.WriteFile(absPath+MetaExt, []byte(meta), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
}

func materialWith(guids ...string) string {
	content := "%YAML 1.1\nMaterial:\n  m_Name: test\n"
	for _, g := range guids {
		content += "  - {fileID: 2800000, guid: " + g + ", type: 3}\n"
	}
	return content
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeAsset(t, root, "Assets/Art/a.png", "png-bytes", guidTex)
	writeAsset(t, root, "Assets/Art/b.mat", materialWith(guidTex, guidTex), guidMat)
	writeMetaFile(t, filepath.Join(root, "Assets", "Art"), guidDir)
	return root
}

func TestOpen_ScansAssetsAndReferences(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	db, err := Open(context.Background(), root, Options{Platform: "android"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	want := []string{"Assets/Art", "Assets/Art/a.png", "Assets/Art/b.mat"}
	if got := db.AllPaths(); !slices.Equal(got, want) {
		t.Errorf("AllPaths() = %v, want %v", got, want)
	}
	if !db.IsFolder("Assets/Art") || db.IsFolder("Assets/Art/a.png") {
		t.Error("IsFolder() misclassified entries")
	}
	if g, ok := db.GUIDForPath("Assets/Art/b.mat"); !ok || g != guidMat {
		t.Errorf("GUIDForPath(b.mat) = %q, %v", g, ok)
	}
	if p, ok := db.PathForGUID(guidTex); !ok || p != "Assets/Art/a.png" {
		t.Errorf("PathForGUID(tex) = %q, %v", p, ok)
	}
	deps, err := db.DirectDependencies("Assets/Art/b.mat")
	if err != nil {
		t.Fatalf("DirectDependencies() error: %v", err)
	}
	if !slices.Equal(deps, []string{"Assets/Art/a.png"}) {
		t.Errorf("DirectDependencies(b.mat) = %v", deps)
	}
	if db.KindOf("Assets/Art/a.png") != asset.KindTexture {
		t.Errorf("KindOf(a.png) = %q", db.KindOf("Assets/Art/a.png"))
	}
	if db.FileSize("Assets/Art/a.png") != int64(len("png-bytes")) {
		t.Errorf("FileSize(a.png) = %d", db.FileSize("Assets/Art/a.png"))
	}
}

func TestOpen_FingerprintIgnoresPath(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	before, err := Open(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	fpBefore, _ := before.Fingerprint("Assets/Art/a.png")

	dst := filepath.Join(root, "Assets", "Moved")
	if err := os.MkdirAll(dst, 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(root, "Assets", "Art", "a.png")
	if err := os.Rename(src, filepath.Join(dst, "renamed.png")); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(src+MetaExt, filepath.Join(dst, "renamed.png"+MetaExt)); err != nil {
		t.Fatal(err)
	}

	after, err := Open(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Open() after rename error: %v", err)
	}
	fpAfter, err := after.Fingerprint("Assets/Moved/renamed.png")
	if err != nil {
		t.Fatalf("Fingerprint() error: %v", err)
	}
	if fpAfter != fpBefore {
		t.Errorf("fingerprint changed on rename: %s -> %s", fpBefore, fpAfter)
	}
	if p, _ := after.PathForGUID(guidTex); p != "Assets/Moved/renamed.png" {
		t.Errorf("PathForGUID after rename = %q", p)
	}

	platform, err := Open(context.Background(), root, Options{Platform: "ios"})
	if err != nil {
		t.Fatal(err)
	}
	fpPlatform, _ := platform.Fingerprint("Assets/Moved/renamed.png")
	if fpPlatform == fpAfter {
		t.Error("fingerprint must change with the target platform")
	}
}

func TestOpen_MintsMissingMeta(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeAsset(t, root, "Assets/new.txt", "hello", "")

	db, err := Open(context.Background(), root, Options{WriteMissingMeta: true})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	g, ok := db.GUIDForPath("Assets/new.txt")
	if !ok {
		t.Fatal("asset without meta must still be registered")
	}
	if err := g.Validate(); err != nil {
		t.Errorf("minted guid invalid: %v", err)
	}

	m, _, err := readMeta(filepath.Join(root, "Assets", "new.txt") + MetaExt)
	if err != nil || m == nil {
		t.Fatalf("meta file not written: %v", err)
	}
	if m.GUID != g {
		t.Errorf("written guid = %q, want %q", m.GUID, g)
	}

	again, err := Open(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if g2, _ := again.GUIDForPath("Assets/new.txt"); g2 != g {
		t.Errorf("guid not stable across scans: %q vs %q", g, g2)
	}
}

func TestOpen_StableIdentityWithoutMeta(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeAsset(t, root, "Assets/a.png", "png-bytes", "")
	writeAsset(t, root, "Assets/b.mat", materialWith(), "")

	first, err := Open(context.Background(), root, Options{Platform: "linux"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	second, err := Open(context.Background(), root, Options{Platform: "linux"})
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}

	seen := map[asset.GUID]string{}
	for _, p := range []string{"Assets/a.png", "Assets/b.mat"} {
		g1, _ := first.GUIDForPath(p)
		g2, _ := second.GUIDForPath(p)
		if g1 != g2 {
			t.Errorf("%s: guid changed between scans: %q vs %q", p, g1, g2)
		}
		if err := g1.Validate(); err != nil {
			t.Errorf("%s: derived guid invalid: %v", p, err)
		}
		if other, dup := seen[g1]; dup {
			t.Errorf("%s and %s share guid %q", p, other, g1)
		}
		seen[g1] = p

		fp1, _ := first.Fingerprint(p)
		fp2, _ := second.Fingerprint(p)
		if fp1 != fp2 {
			t.Errorf("%s: fingerprint changed between scans", p)
		}
		if _, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(p)) + MetaExt); !os.IsNotExist(statErr) {
			t.Errorf("%s: meta file written without WriteMissingMeta", p)
		}
	}
}

func TestOpen_DuplicateGUID(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeAsset(t, root, "Assets/a.txt", "a", guidTex)
	writeAsset(t, root, "Assets/b.txt", "b", guidTex)

	diags := issue.NewDiagnostics(nil)
	db, err := Open(context.Background(), root, Options{Diagnostics: diags})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	ga, _ := db.GUIDForPath("Assets/a.txt")
	gb, _ := db.GUIDForPath("Assets/b.txt")
	if ga != guidTex {
		t.Errorf("first path should keep its guid, got %q", ga)
	}
	if gb == guidTex || gb == "" {
		t.Errorf("second path should get a fresh guid, got %q", gb)
	}
	if diags.Count(issue.CodeDuplicateGUID) != 1 {
		t.Errorf("duplicate guid diagnostics = %d, want 1", diags.Count(issue.CodeDuplicateGUID))
	}
}

func TestOpen_SkipsHiddenAndTildeFolders(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeAsset(t, root, "Assets/keep.txt", "k", "")
	writeAsset(t, root, "Assets/.hidden/x.txt", "x", "")
	writeAsset(t, root, "Assets/Samples~/y.txt", "y", "")

	db, err := Open(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if got := db.AllPaths(); !slices.Equal(got, []string{"Assets/keep.txt"}) {
		t.Errorf("AllPaths() = %v", got)
	}
}

func TestOpen_NoAssetsFolder(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), t.TempDir(), Options{})
	if !errors.Is(err, ErrNoAssetsFolder) {
		t.Errorf("Open() error = %v, want ErrNoAssetsFolder", err)
	}
}
