// SPDX-License-Identifier: MPL-2.0

package buildmap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/issue"
	"github.com/invowk/bundlemap/internal/rules"
)

var (
	// ErrDuplicateBuildItem is returned when two collected items share a path.
	ErrDuplicateBuildItem = errors.New("build item registered twice")
	// ErrMaterializeMiss is returned when a dependency has no build item.
	ErrMaterializeMiss = errors.New("dependency has no build item")
	// ErrEmptyPackingSet is returned when no item ends up with a bundle.
	ErrEmptyPackingSet = errors.New("nothing to pack")
)

type (
	// ShareHook inspects the build items and returns bundle names to assign, keyed by
	// asset path. It must not mutate the items; the resolver applies its decisions
	// with the usual set-once rules.
	ShareHook func(items []*Item) map[string]string

	// SharePolicy computes the shared-bundle candidate of an unassigned item. An
	// invalid result leaves the item unassigned.
	SharePolicy func(item *Item) rules.PackResult

	// Options configures a Resolver.
	Options struct {
		// EnableSharePackRule enables the shared-bundle policy.
		EnableSharePackRule bool
		// SingleReferencedPackAlone moves items referenced by a single bundle into a
		// shared bundle too.
		SingleReferencedPackAlone bool
		// PreShare runs before the shared-bundle policy (optional).
		PreShare ShareHook
		// Policy replaces the parent-folder shared-bundle policy (optional).
		Policy SharePolicy
		// PostShare runs after the shared-bundle policy (optional).
		PostShare ShareHook

		Logger      *slog.Logger
		Diagnostics *issue.Diagnostics
	}

	// IndependentAsset is a dependency-only item that nothing references.
	IndependentAsset struct {
		AssetPath string     `json:"asset_path" toml:"asset_path"`
		AssetGUID asset.GUID `json:"asset_guid" toml:"asset_guid"`
		AssetType asset.Kind `json:"asset_type" toml:"asset_type"`
		FileSize  int64      `json:"file_size" toml:"file_size"`
	}

	// Result is a closed build graph grouped into bundles.
	Result struct {
		Command    *collect.Command
		Aggregator *Aggregator
		// Items is every packed item in registration order.
		Items []*Item
		// IndependentAssets are the pruned dependency-only items.
		IndependentAssets []IndependentAsset
		// AssetFileCount is the number of graph items before final pruning.
		AssetFileCount int
	}

	// Resolver builds the graph of one collection result.
	Resolver struct {
		db     asset.Database
		opts   Options
		logger *slog.Logger
		diags  *issue.Diagnostics
	}

	// graph is the ordered path to item map of one resolution.
	graph struct {
		items map[string]*Item
		order []*Item
	}
)

// NewResolver creates a resolver. db supplies file sizes for the audit of pruned
// assets and may be nil.
func NewResolver(db asset.Database, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	diags := opts.Diagnostics
	if diags == nil {
		diags = issue.NewDiagnostics(logger)
	}
	if opts.Policy == nil {
		opts.Policy = func(it *Item) rules.PackResult { return rules.SharePackResult(it.Path()) }
	}
	return &Resolver{db: db, opts: opts, logger: logger, diags: diags}
}

func (g *graph) add(it *Item) {
	g.items[it.Path()] = it
	g.order = append(g.order, it)
}

// Resolve runs every resolution phase over res and packs the surviving items.
func (r *Resolver) Resolve(ctx context.Context, res *collect.Result) (*Result, error) {
	out := &Result{Command: res.Command, Aggregator: NewAggregator()}
	collected := r.removeZeroReferenceAssets(res.Items, out)

	g := &graph{items: make(map[string]*Item, len(collected))}
	if err := r.registerCollected(g, collected); err != nil {
		return nil, err
	}
	if err := r.registerDependencies(g, collected); err != nil {
		return nil, err
	}
	if err := r.materialize(g, collected); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.assignShaders(g, res.Command); err != nil {
		return nil, err
	}
	if r.opts.EnableSharePackRule {
		if err := r.share(g, res.Command); err != nil {
			return nil, err
		}
	}

	out.AssetFileCount = len(g.order)
	for _, it := range g.order {
		if it.HasBundle() {
			out.Items = append(out.Items, it)
		}
	}
	if len(out.Items) == 0 {
		return nil, issue.PackingInconsistency(issue.CodeEmptyPackingSet, res.Command.PackageName, ErrEmptyPackingSet,
			"no asset was assigned a bundle")
	}
	for _, it := range out.Items {
		if err := out.Aggregator.Assign(it); err != nil {
			return nil, err
		}
	}
	r.logger.Info("build map resolved",
		"package", res.Command.PackageName,
		"assets", out.AssetFileCount,
		"packed", len(out.Items),
		"bundles", out.Aggregator.Len(),
		"independent", len(out.IndependentAssets))
	return out, nil
}

// removeZeroReferenceAssets drops dependency-only items that no main or static item
// depends on. It runs only when a dependency-only item exists.
func (r *Resolver) removeZeroReferenceAssets(items []*collect.Item, out *Result) []*collect.Item {
	hasDependCollector := false
	for _, it := range items {
		if it.Kind == collect.KindDependency {
			hasDependCollector = true
			break
		}
	}
	if !hasDependCollector {
		return items
	}

	depended := make(map[string]bool)
	for _, it := range items {
		if it.Kind == collect.KindMain || it.Kind == collect.KindStatic {
			for _, d := range it.Dependencies {
				depended[d.Path] = true
			}
		}
	}
	kept := make([]*collect.Item, 0, len(items))
	for _, it := range items {
		if it.Kind == collect.KindDependency && !depended[it.Node.Path] {
			r.diags.Warn(issue.CodeIndependentAsset, it.Node.Path, "found undepended asset and removed it: %s", it.Node.Path)
			ia := IndependentAsset{AssetPath: it.Node.Path, AssetGUID: it.Node.GUID, AssetType: it.Node.Kind}
			if r.db != nil {
				ia.FileSize = r.db.FileSize(it.Node.Path)
			}
			out.IndependentAssets = append(out.IndependentAssets, ia)
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

func (r *Resolver) registerCollected(g *graph, items []*collect.Item) error {
	for _, c := range items {
		if _, dup := g.items[c.Node.Path]; dup {
			return issue.InternalInvariant(issue.CodeDuplicateBuildItem, c.Node.Path, ErrDuplicateBuildItem,
				"collectors overlap on this asset")
		}
		it, err := newCollectedItem(c)
		if err != nil {
			return err
		}
		if c.Kind != collect.KindMain && len(c.Tags) > 0 {
			r.diags.Warn(issue.CodeRemovedTags, c.Node.Path,
				"removed asset tags that only apply to main assets, see collector kind %s: %s", c.Kind, c.Node.Path)
		} else {
			it.addTags(c.Tags)
		}
		g.add(it)
	}
	return nil
}

func (r *Resolver) registerDependencies(g *graph, items []*collect.Item) error {
	for _, c := range items {
		for _, d := range c.Dependencies {
			it, ok := g.items[d.Path]
			if !ok {
				it = newDependencyItem(d)
				g.add(it)
			}
			if err := it.addReference(c.BundleName); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) materialize(g *graph, items []*collect.Item) error {
	for _, c := range items {
		deps := make([]*Item, 0, len(c.Dependencies))
		for _, d := range c.Dependencies {
			it, ok := g.items[d.Path]
			if !ok {
				return issue.CacheInconsistency(issue.CodeMaterializeMiss, d.Path, ErrMaterializeMiss,
					"dependency of %s was not registered", c.Node.Path)
			}
			deps = append(deps, it)
		}
		if err := g.items[c.Node.Path].setDependencies(deps); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) assignShaders(g *graph, cmd *collect.Command) error {
	if !cmd.AutoCollectShaders {
		return nil
	}
	name := cmd.ShadersBundleName()
	for _, it := range g.order {
		if it.Kind == collect.KindNone && it.Node.Kind.IsShader() && !it.HasBundle() {
			if err := it.AssignBundle(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) share(g *graph, cmd *collect.Command) error {
	if err := r.applyHook(g, r.opts.PreShare); err != nil {
		return err
	}
	for _, it := range g.order {
		if it.HasBundle() {
			continue
		}
		res := r.opts.Policy(it)
		if !res.Valid() {
			continue
		}
		if it.ReferenceCount() <= 1 && !r.opts.SingleReferencedPackAlone {
			continue
		}
		if err := it.AssignBundle(res.ShareName(cmd.PackageName, cmd.UniqueBundleName)); err != nil {
			return err
		}
	}
	return r.applyHook(g, r.opts.PostShare)
}

func (r *Resolver) applyHook(g *graph, hook ShareHook) error {
	if hook == nil {
		return nil
	}
	view := make([]*Item, len(g.order))
	copy(view, g.order)
	decisions := hook(view)
	// Apply in graph order so hook map iteration order never leaks into the result.
	for _, it := range g.order {
		name, ok := decisions[it.Path()]
		if !ok {
			continue
		}
		if err := it.AssignBundle(name); err != nil {
			return err
		}
	}
	return nil
}
