// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"log/slog"
	"slices"
	"sort"

	"github.com/invowk/bundlemap/internal/buildmap"
	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/compiler"
	"github.com/invowk/bundlemap/internal/issue"
)

// ErrHashConflict is returned when two bundles publish the same file hash.
var ErrHashConflict = errors.New("bundle hash conflict")

type (
	// Header carries the package identity written into the manifest.
	Header struct {
		PackageName    string
		PackageVersion string
		PackageNote    string
		FileNameStyle  FileNameStyle
		BuildPipeline  string
	}

	// Input is everything the resolver needs for one build.
	Input struct {
		Command    *collect.Command
		Header     Header
		Aggregator *buildmap.Aggregator
		// BundleDepends returns the compiler-derived dependency bundle names of a
		// bundle. Nil skips bundle dependencies and the builtin bundle pass, as in a
		// simulated build.
		BundleDepends func(bundleName string) []string
		// BuiltinBundles are engine-internal bundles whose references are
		// reconstructed from the bundles that depend on them.
		BuiltinBundles []string
	}

	// Resolver builds a Manifest from a bundle grouping.
	Resolver struct {
		logger *slog.Logger
		diags  *issue.Diagnostics
	}

	// resolution is the index state of one Resolve call.
	resolution struct {
		m       *Manifest
		index   map[string]int
		items   []*buildmap.Item
		touched map[int]bool
	}
)

// NewResolver creates a resolver. Nil arguments discard output.
func NewResolver(logger *slog.Logger, diags *issue.Diagnostics) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if diags == nil {
		diags = issue.NewDiagnostics(logger)
	}
	return &Resolver{logger: logger, diags: diags}
}

// BundleDependsFromResult adapts a compiler result to Input.BundleDepends.
func BundleDependsFromResult(res *compiler.Result) func(string) []string {
	return func(name string) []string {
		b, _ := res.Bundle(name)
		return b.DependencyBundleNames
	}
}

// Resolve produces the manifest. Bundles are sorted by name and assets by path
// before any index is assigned.
func (r *Resolver) Resolve(in Input) (*Manifest, error) {
	if err := checkHashConflict(in.Aggregator); err != nil {
		return nil, err
	}

	cmd := in.Command
	m := &Manifest{
		FileVersion:          FileVersion,
		EnableAddressable:    cmd.EnableAddressable,
		SupportExtensionless: cmd.SupportExtensionless,
		LocationToLower:      cmd.LocationToLower,
		IncludeAssetGUID:     cmd.IncludeAssetGUID,
		OutputNameStyle:      in.Header.FileNameStyle,
		BuildPipeline:        in.Header.BuildPipeline,
		PackageName:          in.Header.PackageName,
		PackageVersion:       in.Header.PackageVersion,
		PackageNote:          in.Header.PackageNote,
	}
	res := &resolution{m: m, index: make(map[string]int), touched: make(map[int]bool)}
	res.createLists(in)

	if err := res.processAssets(); err != nil {
		return nil, err
	}
	if in.BundleDepends != nil {
		if err := res.processBundleDepends(in.BundleDepends); err != nil {
			return nil, err
		}
	}
	res.processTags(r.diags)
	m.initReferences()
	if in.BundleDepends != nil {
		for _, name := range in.BuiltinBundles {
			res.processBuiltin(name)
		}
	}

	r.logger.Info("manifest resolved",
		"package", m.PackageName,
		"version", m.PackageVersion,
		"assets", len(m.AssetList),
		"bundles", len(m.BundleList))
	return m, nil
}

func checkHashConflict(agg *buildmap.Aggregator) error {
	seen := make(map[string]string)
	for _, b := range agg.Bundles() {
		if prev, ok := seen[b.File.FileHash]; ok {
			return issue.PackingInconsistency(issue.CodeHashConflict, b.Name, ErrHashConflict,
				"bundle %s has the same file hash as %s (%s)", b.Name, prev, b.File.FileHash)
		}
		seen[b.File.FileHash] = b.Name
	}
	return nil
}

func (res *resolution) createLists(in Input) {
	cmd := in.Command
	items := in.Aggregator.ManifestItems()
	sort.SliceStable(items, func(i, j int) bool { return items[i].Path() < items[j].Path() })
	res.items = items
	for _, it := range items {
		a := Asset{AssetPath: it.Path(), AssetTags: slices.Clone(it.Tags)}
		if cmd.EnableAddressable {
			a.Address = it.Address
		}
		if cmd.IncludeAssetGUID {
			a.AssetGUID = it.Node.GUID.String()
		}
		if a.AssetTags == nil {
			a.AssetTags = []string{}
		}
		res.m.AssetList = append(res.m.AssetList, a)
	}

	for _, b := range in.Aggregator.Bundles() {
		res.m.BundleList = append(res.m.BundleList, Bundle{
			BundleName:      b.Name,
			UnityCRC:        b.File.ContentCRC,
			FileHash:        b.File.FileHash,
			FileCRC:         compiler.FormatCRC(b.File.FileCRC),
			FileSize:        b.File.FileSize,
			Encrypted:       b.File.Encrypted,
			Tags:            []string{},
			DependBundleIDs: []int{},
		})
	}
	sort.SliceStable(res.m.BundleList, func(i, j int) bool {
		return res.m.BundleList[i].BundleName < res.m.BundleList[j].BundleName
	})
	for i, b := range res.m.BundleList {
		res.index[b.BundleName] = i
	}
}

func (res *resolution) bundleID(name string) (int, error) {
	id, ok := res.index[name]
	if !ok {
		return -1, issue.InternalInvariant(issue.CodeUnknownBundle, name, buildmap.ErrUnknownBundle,
			"bundle has no manifest index")
	}
	return id, nil
}

func (res *resolution) processAssets() error {
	for i, it := range res.items {
		own, err := res.bundleID(it.BundleName())
		if err != nil {
			return err
		}
		res.m.AssetList[i].BundleID = own

		ids := []int{}
		for _, dep := range it.Dependencies() {
			if !dep.HasBundle() {
				continue
			}
			id, err := res.bundleID(dep.BundleName())
			if err != nil {
				return err
			}
			if id != own && !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		res.m.AssetList[i].DependBundleIDs = ids
	}
	return nil
}

func (res *resolution) processBundleDepends(depends func(string) []string) error {
	for i := range res.m.BundleList {
		b := &res.m.BundleList[i]
		ids := []int{}
		for _, name := range depends(b.BundleName) {
			id, err := res.bundleID(name)
			if err != nil {
				return err
			}
			if id != i && !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		b.DependBundleIDs = ids
	}
	return nil
}

func (res *resolution) processTags(diags *issue.Diagnostics) {
	tags := make(map[int][]string)
	add := func(id int, values []string) {
		res.touched[id] = true
		for _, v := range values {
			if !slices.Contains(tags[id], v) {
				tags[id] = append(tags[id], v)
			}
		}
	}
	for _, a := range res.m.AssetList {
		add(a.BundleID, a.AssetTags)
		for _, id := range a.DependBundleIDs {
			add(id, a.AssetTags)
		}
	}
	for i := range res.m.BundleList {
		b := &res.m.BundleList[i]
		if !res.touched[i] {
			diags.Warn(issue.CodeStrayBundle, b.BundleName,
				"found stray bundle, id %d name %s", i, b.BundleName)
			continue
		}
		if t := tags[i]; t != nil {
			b.Tags = t
		}
	}
}

// processBuiltin adds an engine-internal bundle to the dependencies of every asset
// whose bundle references it and merges those assets' tags into it.
func (res *resolution) processBuiltin(name string) {
	id, ok := res.index[name]
	if !ok {
		return
	}
	builtin := &res.m.BundleList[id]
	for i := range res.m.AssetList {
		a := &res.m.AssetList[i]
		if !slices.Contains(builtin.ReferenceBundleIDs, a.BundleID) {
			continue
		}
		if !slices.Contains(a.DependBundleIDs, id) {
			a.DependBundleIDs = append(a.DependBundleIDs, id)
			slices.Sort(a.DependBundleIDs)
		}
		for _, t := range a.AssetTags {
			if !slices.Contains(builtin.Tags, t) {
				builtin.Tags = append(builtin.Tags, t)
			}
		}
	}
}
