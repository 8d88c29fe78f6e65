// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"errors"
	"testing"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/buildmap"
	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/compiler"
	"github.com/invowk/bundlemap/internal/issue"

	"github.com/google/go-cmp/cmp"
)

func node(p string) asset.Node {
	return asset.Node{GUID: asset.GUID("g-" + p), Path: p, Kind: asset.KindFromPath(p)}
}

func mainItem(p, bundle string, tags []string, deps ...string) *collect.Item {
	it := &collect.Item{Kind: collect.KindMain, BundleName: bundle, Address: asset.FileNameWithoutExt(p), Node: node(p), Tags: tags}
	for _, d := range deps {
		it.Dependencies = append(it.Dependencies, node(d))
	}
	return it
}

// graph resolves items and gives every bundle a distinct file hash.
func graph(t *testing.T, share bool, items ...*collect.Item) (*collect.Command, *buildmap.Aggregator) {
	t.Helper()
	cmd := &collect.Command{PackageName: "DefaultPackage", EnableAddressable: true, IncludeAssetGUID: true}
	out, err := buildmap.NewResolver(nil, buildmap.Options{EnableSharePackRule: share}).
		Resolve(context.Background(), &collect.Result{Command: cmd, Items: items})
	if err != nil {
		t.Fatalf("buildmap Resolve() error: %v", err)
	}
	for _, b := range out.Aggregator.Bundles() {
		meta := compiler.SimulateMeta(b.Name)
		b.File.FileHash = meta.MD5
	}
	return cmd, out.Aggregator
}

func resolve(t *testing.T, in Input) (*Manifest, *issue.Diagnostics) {
	t.Helper()
	diags := issue.NewDiagnostics(nil)
	if in.Header.PackageName == "" {
		in.Header = Header{PackageName: "DefaultPackage", PackageVersion: "v1", FileNameStyle: StyleHashName}
	}
	m, err := NewResolver(nil, diags).Resolve(in)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return m, diags
}

func TestResolve_SingleBundle(t *testing.T) {
	t.Parallel()

	cmd, agg := graph(t, false,
		mainItem("Assets/Art/a.png", "assets_art.bundle", nil),
		mainItem("Assets/Art/b.mat", "assets_art.bundle", nil, "Assets/Art/a.png"),
	)
	m, _ := resolve(t, Input{Command: cmd, Aggregator: agg})

	if len(m.BundleList) != 1 || len(m.AssetList) != 2 {
		t.Fatalf("manifest has %d bundles and %d assets", len(m.BundleList), len(m.AssetList))
	}
	a, ok := m.Asset("Assets/Art/a.png")
	if !ok {
		t.Fatal("a.png missing from manifest")
	}
	if len(a.DependBundleIDs) != 0 {
		t.Errorf("a.png DependBundleIDs = %v, want empty", a.DependBundleIDs)
	}
	if a.Address != "a" || a.AssetGUID != "g-Assets/Art/a.png" {
		t.Errorf("a.png address/guid = %q/%q", a.Address, a.AssetGUID)
	}
}

func TestResolve_SharedBundleDependencies(t *testing.T) {
	t.Parallel()

	cmd, agg := graph(t, true,
		mainItem("Assets/X/b.mat", "x.bundle", []string{"x"}, "Assets/Shared/shared.png"),
		mainItem("Assets/Y/c.mat", "y.bundle", []string{"y"}, "Assets/Shared/shared.png"),
	)
	engine := map[string][]string{
		"x.bundle": {"share_assets_shared.bundle", "x.bundle"},
		"y.bundle": {"share_assets_shared.bundle"},
	}
	m, diags := resolve(t, Input{
		Command:       cmd,
		Aggregator:    agg,
		BundleDepends: func(name string) []string { return engine[name] },
	})

	wantBundles := []string{"share_assets_shared.bundle", "x.bundle", "y.bundle"}
	var gotBundles []string
	for _, b := range m.BundleList {
		gotBundles = append(gotBundles, b.BundleName)
	}
	if diff := cmp.Diff(wantBundles, gotBundles); diff != "" {
		t.Fatalf("bundles must be sorted by name (-want +got):\n%s", diff)
	}
	for _, p := range []string{"Assets/X/b.mat", "Assets/Y/c.mat"} {
		a, _ := m.Asset(p)
		if diff := cmp.Diff([]int{0}, a.DependBundleIDs); diff != "" {
			t.Errorf("%s DependBundleIDs mismatch (-want +got):\n%s", p, diff)
		}
	}
	if diff := cmp.Diff([]int{0}, m.BundleList[1].DependBundleIDs); diff != "" {
		t.Errorf("x.bundle must drop its self reference (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "y"}, m.BundleList[0].Tags); diff != "" {
		t.Errorf("shared bundle tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, m.BundleList[0].ReferenceBundleIDs); diff != "" {
		t.Errorf("ReferenceBundleIDs mismatch (-want +got):\n%s", diff)
	}
	if diags.Count(issue.CodeStrayBundle) != 0 {
		t.Errorf("unexpected stray bundles: %+v", diags.All())
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	build := func(order []int) []byte {
		items := []*collect.Item{
			mainItem("Assets/B/z.prefab", "b.bundle", []string{"t"}, "Assets/S/s.png"),
			mainItem("Assets/A/y.prefab", "a.bundle", nil, "Assets/S/s.png"),
			mainItem("Assets/C/x.prefab", "c.bundle", nil, "Assets/B/z.prefab"),
		}
		ordered := make([]*collect.Item, len(order))
		for i, idx := range order {
			ordered[i] = items[idx]
		}
		cmd, agg := graph(t, true, ordered...)
		m, _ := resolve(t, Input{Command: cmd, Aggregator: agg})
		data, err := MarshalBinary(m)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}
	first := build([]int{0, 1, 2})
	if diff := cmp.Diff(first, build([]int{0, 1, 2})); diff != "" {
		t.Errorf("identical inputs produced different manifests")
	}
	if diff := cmp.Diff(first, build([]int{2, 1, 0})); diff != "" {
		t.Errorf("collection order leaked into the manifest")
	}
}

func TestResolve_HashConflict(t *testing.T) {
	t.Parallel()

	cmd, agg := graph(t, false,
		mainItem("Assets/A/a.png", "a.bundle", nil),
		mainItem("Assets/B/b.png", "b.bundle", nil),
	)
	for _, b := range agg.Bundles() {
		b.File.FileHash = "same"
	}
	_, err := NewResolver(nil, nil).Resolve(Input{Command: cmd, Aggregator: agg})
	if !errors.Is(err, ErrHashConflict) || !errors.Is(err, issue.ErrPackingInconsistency) {
		t.Fatalf("Resolve() error = %v, want ErrHashConflict", err)
	}
	if be, _ := issue.AsBuildError(err); be.Resource != "b.bundle" {
		t.Errorf("conflict resource = %q, want b.bundle", be.Resource)
	}
}

func TestResolve_UnknownEngineBundle(t *testing.T) {
	t.Parallel()

	cmd, agg := graph(t, false, mainItem("Assets/A/a.png", "a.bundle", nil))
	_, err := NewResolver(nil, nil).Resolve(Input{
		Command:       cmd,
		Aggregator:    agg,
		BundleDepends: func(string) []string { return []string{"ghost.bundle"} },
	})
	if !errors.Is(err, buildmap.ErrUnknownBundle) || !errors.Is(err, issue.ErrInternalInvariant) {
		t.Errorf("Resolve() error = %v, want unknown bundle invariant", err)
	}
}

func TestResolve_StrayAndBuiltinBundles(t *testing.T) {
	t.Parallel()

	cmd, agg := graph(t, false,
		mainItem("Assets/A/a.mat", "a.bundle", []string{"ui"}),
		mainItem("Assets/B/b.mat", "b.bundle", []string{"core"}),
	)
	agg.CreateEmptyBundle("unitymonoscripts.bundle")
	mono, _ := agg.Bundle("unitymonoscripts.bundle")
	mono.File.FileHash = "mono"
	engine := map[string][]string{"a.bundle": {"unitymonoscripts.bundle"}}
	depends := func(name string) []string { return engine[name] }

	m, diags := resolve(t, Input{Command: cmd, Aggregator: agg, BundleDepends: depends})
	if diags.Count(issue.CodeStrayBundle) != 1 {
		t.Errorf("without the builtin pass the script bundle is stray: %+v", diags.All())
	}

	cmd, agg = graph(t, false,
		mainItem("Assets/A/a.mat", "a.bundle", []string{"ui"}),
		mainItem("Assets/B/b.mat", "b.bundle", []string{"core"}),
	)
	agg.CreateEmptyBundle("unitymonoscripts.bundle")
	mono, _ = agg.Bundle("unitymonoscripts.bundle")
	mono.File.FileHash = "mono"
	m, _ = resolve(t, Input{
		Command:        cmd,
		Aggregator:     agg,
		BundleDepends:  depends,
		BuiltinBundles: []string{"unitymonoscripts.bundle", "unityshaders.bundle"},
	})
	id, _ := m.BundleIndex("unitymonoscripts.bundle")
	a, _ := m.Asset("Assets/A/a.mat")
	if diff := cmp.Diff([]int{id}, a.DependBundleIDs); diff != "" {
		t.Errorf("a.mat must depend on the script bundle (-want +got):\n%s", diff)
	}
	b, _ := m.Asset("Assets/B/b.mat")
	if len(b.DependBundleIDs) != 0 {
		t.Errorf("b.mat DependBundleIDs = %v, want none", b.DependBundleIDs)
	}
	if diff := cmp.Diff([]string{"ui"}, m.BundleList[id].Tags); diff != "" {
		t.Errorf("script bundle tags mismatch (-want +got):\n%s", diff)
	}
}

func TestFileNameStyle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		style FileNameStyle
		want  string
	}{
		{StyleHashName, "abc.bundle"},
		{StyleBundleName, "ui_main.bundle"},
		{StyleBundleNameHashName, "ui_main_abc.bundle"},
	}
	for _, tt := range tests {
		if got := tt.style.FileName("ui_main.bundle", "abc"); got != tt.want {
			t.Errorf("%s.FileName() = %q, want %q", tt.style, got, tt.want)
		}
		if err := tt.style.Validate(); err != nil {
			t.Errorf("%s.Validate() error: %v", tt.style, err)
		}
	}
	var target *InvalidFileNameStyleError
	if err := FileNameStyle("Hash").Validate(); !errors.As(err, &target) || !errors.Is(err, ErrInvalidFileNameStyle) {
		t.Errorf("Validate() error = %v, want InvalidFileNameStyleError", err)
	}
}
