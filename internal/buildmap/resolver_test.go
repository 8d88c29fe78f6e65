// SPDX-License-Identifier: MPL-2.0

package buildmap

import (
	"context"
	"errors"
	"testing"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/depcache"
	"github.com/invowk/bundlemap/internal/issue"
	"github.com/invowk/bundlemap/internal/rules"
	"github.com/invowk/bundlemap/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

func node(p string) asset.Node {
	return asset.Node{GUID: asset.GUID("g-" + p), Path: p, Kind: asset.KindFromPath(p)}
}

func collected(kind collect.CollectorKind, p, bundle string, deps ...string) *collect.Item {
	it := &collect.Item{Kind: kind, BundleName: bundle, Node: node(p)}
	for _, d := range deps {
		it.Dependencies = append(it.Dependencies, node(d))
	}
	return it
}

func result(items ...*collect.Item) *collect.Result {
	return &collect.Result{Command: &collect.Command{PackageName: "DefaultPackage"}, Items: items}
}

func bundleNames(agg *Aggregator) []string {
	var out []string
	for _, b := range agg.Bundles() {
		out = append(out, b.Name)
	}
	return out
}

func TestResolve_SingleFolderBundle(t *testing.T) {
	t.Parallel()

	res := result(
		collected(collect.KindMain, "Assets/Art/a.png", "assets_art.bundle"),
		collected(collect.KindMain, "Assets/Art/b.mat", "assets_art.bundle", "Assets/Art/a.png"),
	)
	out, err := NewResolver(nil, Options{}).Resolve(context.Background(), res)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if diff := cmp.Diff([]string{"assets_art.bundle"}, bundleNames(out.Aggregator)); diff != "" {
		t.Fatalf("bundles mismatch (-want +got):\n%s", diff)
	}
	b, _ := out.Aggregator.Bundle("assets_art.bundle")
	if diff := cmp.Diff([]string{"Assets/Art/a.png", "Assets/Art/b.mat"}, b.AssetPaths()); diff != "" {
		t.Errorf("bundle contents mismatch (-want +got):\n%s", diff)
	}
	a, _ := b.Item("Assets/Art/a.png")
	if len(a.Dependencies()) != 0 {
		t.Errorf("a.png dependencies = %v, want none", itemPaths(a.Dependencies()))
	}
	if a.ReferenceCount() != 1 {
		t.Errorf("a.png ReferenceCount() = %d, want 1", a.ReferenceCount())
	}
	if out.AssetFileCount != 2 {
		t.Errorf("AssetFileCount = %d, want 2", out.AssetFileCount)
	}
}

func TestResolve_SharedBundle(t *testing.T) {
	t.Parallel()

	res := result(
		collected(collect.KindMain, "Assets/X/b.mat", "x.bundle", "Assets/Shared/shared.png"),
		collected(collect.KindMain, "Assets/Y/c.mat", "y.bundle", "Assets/Shared/shared.png"),
	)
	out, err := NewResolver(nil, Options{EnableSharePackRule: true}).Resolve(context.Background(), res)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	want := []string{"x.bundle", "y.bundle", "share_assets_shared.bundle"}
	if diff := cmp.Diff(want, bundleNames(out.Aggregator)); diff != "" {
		t.Fatalf("bundles mismatch (-want +got):\n%s", diff)
	}
	shared, _ := out.Aggregator.Bundle("share_assets_shared.bundle")
	it, ok := shared.Item("Assets/Shared/shared.png")
	if !ok {
		t.Fatal("shared.png not packed into the shared bundle")
	}
	if it.Kind != collect.KindNone || it.ReferenceCount() != 2 {
		t.Errorf("shared item kind = %s refs = %d, want none/2", it.Kind, it.ReferenceCount())
	}
	x, _ := out.Aggregator.Bundle("x.bundle")
	b, _ := x.Item("Assets/X/b.mat")
	if diff := cmp.Diff([]string{"Assets/Shared/shared.png"}, itemPaths(b.Dependencies())); diff != "" {
		t.Errorf("b.mat dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_SingleReference(t *testing.T) {
	t.Parallel()

	for _, alone := range []bool{false, true} {
		res := result(collected(collect.KindMain, "Assets/X/b.mat", "x.bundle", "Assets/Tex/t.png"))
		out, err := NewResolver(nil, Options{
			EnableSharePackRule:       true,
			SingleReferencedPackAlone: alone,
		}).Resolve(context.Background(), res)
		if err != nil {
			t.Fatalf("alone=%v: Resolve() error: %v", alone, err)
		}
		if out.AssetFileCount != 2 {
			t.Errorf("alone=%v: AssetFileCount = %d, want 2", alone, out.AssetFileCount)
		}
		if got := out.Aggregator.Has("share_assets_tex.bundle"); got != alone {
			t.Errorf("alone=%v: shared bundle created = %v", alone, got)
		}
		if !alone && len(out.Items) != 1 {
			t.Errorf("unbundled dependency must be pruned, packed %v", itemPaths(out.Items))
		}
	}
}

func TestResolve_PrunesIndependentAssets(t *testing.T) {
	t.Parallel()

	db := testutil.NewMemDB()
	db.Add("Assets/Data/orphan.asset")
	db.SetSize("Assets/Data/orphan.asset", 42)

	diags := issue.NewDiagnostics(nil)
	res := result(
		collected(collect.KindMain, "Assets/UI/menu.prefab", "ui.bundle", "Assets/Data/used.asset"),
		collected(collect.KindDependency, "Assets/Data/used.asset", "data.bundle"),
		collected(collect.KindDependency, "Assets/Data/orphan.asset", "data.bundle"),
	)
	out, err := NewResolver(db, Options{Diagnostics: diags}).Resolve(context.Background(), res)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	want := []IndependentAsset{{
		AssetPath: "Assets/Data/orphan.asset",
		AssetGUID: "g-Assets/Data/orphan.asset",
		AssetType: asset.KindGeneric,
		FileSize:  42,
	}}
	if diff := cmp.Diff(want, out.IndependentAssets); diff != "" {
		t.Errorf("IndependentAssets mismatch (-want +got):\n%s", diff)
	}
	for _, it := range out.Items {
		if it.Path() == "Assets/Data/orphan.asset" {
			t.Error("orphan.asset must not be packed")
		}
	}
	if diags.Count(issue.CodeIndependentAsset) != 1 {
		t.Errorf("independent asset warnings = %d, want 1", diags.Count(issue.CodeIndependentAsset))
	}
}

func TestResolve_KeepsAllWithoutDependencyCollector(t *testing.T) {
	t.Parallel()

	res := result(
		collected(collect.KindMain, "Assets/a.prefab", "a.bundle"),
		collected(collect.KindStatic, "Assets/b.asset", "b.bundle"),
	)
	out, err := NewResolver(nil, Options{}).Resolve(context.Background(), res)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(out.IndependentAssets) != 0 || len(out.Items) != 2 {
		t.Errorf("items = %v independent = %v", itemPaths(out.Items), out.IndependentAssets)
	}
}

func TestResolve_TagsOnlyOnMainItems(t *testing.T) {
	t.Parallel()

	mainItem := collected(collect.KindMain, "Assets/a.prefab", "a.bundle")
	mainItem.Tags = []string{"ui", "base", "ui"}
	static := collected(collect.KindStatic, "Assets/b.asset", "b.bundle")
	static.Tags = []string{"ui"}

	diags := issue.NewDiagnostics(nil)
	out, err := NewResolver(nil, Options{Diagnostics: diags}).Resolve(context.Background(), result(mainItem, static))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if diff := cmp.Diff([]string{"ui", "base"}, out.Items[0].Tags); diff != "" {
		t.Errorf("main tags mismatch (-want +got):\n%s", diff)
	}
	if len(out.Items[1].Tags) != 0 {
		t.Errorf("static tags = %v, want cleared", out.Items[1].Tags)
	}
	if diags.Count(issue.CodeRemovedTags) != 1 {
		t.Errorf("removed tag warnings = %d, want 1", diags.Count(issue.CodeRemovedTags))
	}
}

func TestResolve_AutoCollectShaders(t *testing.T) {
	t.Parallel()

	res := result(collected(collect.KindMain, "Assets/m.mat", "m.bundle", "Assets/Shaders/lit.shader", "Assets/t.png"))
	res.Command.AutoCollectShaders = true
	out, err := NewResolver(nil, Options{}).Resolve(context.Background(), res)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	b, err := out.Aggregator.Bundle("unityshaders.bundle")
	if err != nil {
		t.Fatalf("shader bundle missing: %v", err)
	}
	if diff := cmp.Diff([]string{"Assets/Shaders/lit.shader"}, b.AssetPaths()); diff != "" {
		t.Errorf("shader bundle mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ShareHooks(t *testing.T) {
	t.Parallel()

	res := result(
		collected(collect.KindMain, "Assets/X/b.mat", "x.bundle", "Assets/Shared/shared.png", "Assets/Shared/other.png"),
		collected(collect.KindMain, "Assets/Y/c.mat", "y.bundle", "Assets/Shared/shared.png", "Assets/Shared/other.png"),
	)
	var postSeen []string
	opts := Options{
		EnableSharePackRule: true,
		PreShare: func(items []*Item) map[string]string {
			return map[string]string{"Assets/Shared/shared.png": "custom.bundle"}
		},
		Policy: func(it *Item) rules.PackResult {
			return rules.PackResult{BundleName: "common", Extension: rules.BundleExtension}
		},
		PostShare: func(items []*Item) map[string]string {
			for _, it := range items {
				if it.Kind == collect.KindNone {
					postSeen = append(postSeen, it.BundleName())
				}
			}
			return nil
		},
	}
	out, err := NewResolver(nil, opts).Resolve(context.Background(), res)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := []string{"x.bundle", "y.bundle", "custom.bundle", "share_common.bundle"}
	if diff := cmp.Diff(want, bundleNames(out.Aggregator)); diff != "" {
		t.Errorf("bundles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"custom.bundle", "share_common.bundle"}, postSeen); diff != "" {
		t.Errorf("post hook view mismatch (-want +got):\n%s", diff)
	}

	opts.PostShare = func([]*Item) map[string]string {
		return map[string]string{"Assets/Shared/shared.png": "again.bundle"}
	}
	res = result(collected(collect.KindMain, "Assets/X/b.mat", "x.bundle", "Assets/Shared/shared.png"))
	_, err = NewResolver(nil, opts).Resolve(context.Background(), res)
	if !errors.Is(err, ErrBundleReassigned) {
		t.Errorf("reassigning hook error = %v, want ErrBundleReassigned", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		res      *collect.Result
		sentinel error
		kind     error
	}{
		{
			name: "duplicate build item",
			res: result(
				collected(collect.KindMain, "Assets/a.png", "a.bundle"),
				collected(collect.KindStatic, "Assets/a.png", "b.bundle"),
			),
			sentinel: ErrDuplicateBuildItem,
			kind:     issue.ErrInternalInvariant,
		},
		{
			name:     "empty packing set",
			res:      result(),
			sentinel: ErrEmptyPackingSet,
			kind:     issue.ErrPackingInconsistency,
		},
		{
			name:     "unbundled collected item",
			res:      result(collected(collect.KindMain, "Assets/a.png", "")),
			sentinel: ErrEmptyPackingSet,
			kind:     issue.ErrPackingInconsistency,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewResolver(nil, Options{}).Resolve(context.Background(), tt.res)
			if !errors.Is(err, tt.sentinel) || !errors.Is(err, tt.kind) {
				t.Errorf("Resolve() error = %v, want %v / %v", err, tt.sentinel, tt.kind)
			}
		})
	}
}

func TestResolve_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver(nil, Options{}).Resolve(ctx, result(collected(collect.KindMain, "Assets/a.png", "a.bundle")))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestResolve_FromCollector(t *testing.T) {
	t.Parallel()

	db := testutil.NewMemDB()
	db.Add("Assets/Shared/shared.png")
	db.Add("Assets/X/b.mat", "Assets/Shared/shared.png")
	db.Add("Assets/Y/c.mat", "Assets/Shared/shared.png")
	cache, err := depcache.Open(context.Background(), db, depcache.Options{})
	if err != nil {
		t.Fatal(err)
	}
	engine := collect.NewEngine(db, cache, rules.NewRegistry(), nil)
	pkg := collect.Package{
		Name: "DefaultPackage",
		Groups: []collect.Group{
			{Name: "X", Active: true, Collectors: []collect.Collector{{CollectPath: "Assets/X"}}},
			{Name: "Y", Active: true, Collectors: []collect.Collector{{CollectPath: "Assets/Y"}}},
		},
	}
	res, err := engine.Collect(context.Background(), pkg, collect.Options{})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	out, err := NewResolver(db, Options{EnableSharePackRule: true}).Resolve(context.Background(), res)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := []string{"assets_x.bundle", "assets_y.bundle", "share_assets_shared.bundle"}
	if diff := cmp.Diff(want, bundleNames(out.Aggregator)); diff != "" {
		t.Errorf("bundles mismatch (-want +got):\n%s", diff)
	}
}
