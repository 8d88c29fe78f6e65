// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/issue"
	"github.com/invowk/bundlemap/internal/rules"
)

var (
	// ErrInvalidCollector is returned for a collector that fails validation.
	ErrInvalidCollector = errors.New("invalid collector")
	// ErrDuplicateCollectPath is returned when one asset is collected twice.
	ErrDuplicateCollectPath = errors.New("asset collected more than once")
	// ErrDuplicateAddress is returned when two main assets share an address.
	ErrDuplicateAddress = errors.New("duplicate asset address")
	// ErrInvalidAddress is returned when an address is an asset path.
	ErrInvalidAddress = errors.New("address must not be an asset path")
	// ErrEmptyBundleName is returned when a pack rule yields no bundle name.
	ErrEmptyBundleName = errors.New("pack rule returned an empty bundle name")
)

type (
	// DependencyResolver answers transitive dependency queries. *depcache.Cache
	// implements it.
	DependencyResolver interface {
		Resolve(assetPath string, recursive bool) ([]string, error)
	}

	// Options configures the command derived from a Package.
	Options struct {
		UniqueBundleName   bool
		UseDependencyCache bool
		// Simulate sets every flag a simulated build skips.
		Simulate bool
	}

	// Item is one collected asset.
	Item struct {
		Kind       CollectorKind
		BundleName string
		Address    string
		Node       asset.Node
		Tags       []string
		// Dependencies is the transitive dependency list, empty when dependency
		// resolution is skipped.
		Dependencies []asset.Node
		// CollectPath is the collector that produced the item.
		CollectPath string
		GroupName   string
	}

	// Result is the output of one collection run.
	Result struct {
		Command *Command
		Items   []*Item
		// IgnoredCount is the number of candidates rejected by the ignore rule.
		IgnoredCount int
	}

	// Engine runs collectors against an asset database.
	Engine struct {
		db     asset.Database
		deps   DependencyResolver
		rules  *rules.Registry
		logger *slog.Logger
	}

	compiledCollector struct {
		Collector
		filter  rules.FilterRule
		address rules.AddressRule
		pack    rules.PackRule
		folder  bool
	}
)

// NewEngine creates an engine. deps may be nil when every run skips dependency
// resolution.
func NewEngine(db asset.Database, deps DependencyResolver, reg *rules.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{db: db, deps: deps, rules: reg, logger: logger}
}

// NewCommand resolves the package options and ignore rule into a Command.
func (e *Engine) NewCommand(pkg Package, opts Options) (*Command, error) {
	ignoreName := pkg.IgnoreRuleOrDefault()
	ignoreRule, err := e.rules.Ignore(ignoreName)
	if err != nil {
		return nil, err
	}
	cmd := &Command{
		PackageName:          pkg.Name,
		IgnoreRuleName:       ignoreName,
		IgnoreRule:           ignoreRule,
		UniqueBundleName:     opts.UniqueBundleName,
		UseDependencyCache:   opts.UseDependencyCache,
		EnableAddressable:    pkg.EnableAddressable,
		SupportExtensionless: pkg.SupportExtensionless,
		LocationToLower:      pkg.LocationToLower,
		IncludeAssetGUID:     pkg.IncludeAssetGUID,
		AutoCollectShaders:   pkg.AutoCollectShaders,
	}
	cmd.SetSimulateBuild(opts.Simulate)
	return cmd, nil
}

// Validate checks every collector of pkg without collecting.
func (e *Engine) Validate(pkg Package) error {
	if _, err := e.NewCommand(pkg, Options{}); err != nil {
		return err
	}
	for _, g := range pkg.Groups {
		for _, c := range g.Collectors {
			if _, err := e.compile(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) compile(c Collector) (*compiledCollector, error) {
	c = c.WithDefaults()
	c.CollectPath = asset.CleanPath(c.CollectPath)
	invalid := func(format string, args ...any) error {
		return issue.Configuration(issue.CodeInvalidCollector, c.CollectPath, ErrInvalidCollector, format, args...)
	}
	if _, ok := e.db.GUIDForPath(c.CollectPath); !ok && c.CollectPath != asset.RootFolder {
		return nil, invalid("collect path does not exist")
	}
	if err := c.Kind.Validate(); err != nil {
		return nil, invalid("%v", err)
	}
	cc := &compiledCollector{Collector: c, folder: e.db.IsFolder(c.CollectPath)}
	var err error
	if cc.filter, err = e.rules.Filter(c.FilterRuleName); err != nil {
		return nil, fmt.Errorf("collector %s: %w", c.CollectPath, err)
	}
	if cc.address, err = e.rules.Address(c.AddressRuleName); err != nil {
		return nil, fmt.Errorf("collector %s: %w", c.CollectPath, err)
	}
	if cc.pack, err = e.rules.Pack(c.PackRuleName); err != nil {
		return nil, fmt.Errorf("collector %s: %w", c.CollectPath, err)
	}
	if c.FilterRuleName == rules.CollectGlobName && !rules.ValidGlob(c.UserData) {
		return nil, invalid("invalid glob pattern %q", c.UserData)
	}
	return cc, nil
}

// Collect runs every collector of every active group of pkg.
func (e *Engine) Collect(ctx context.Context, pkg Package, opts Options) (*Result, error) {
	cmd, err := e.NewCommand(pkg, opts)
	if err != nil {
		return nil, err
	}
	result := &Result{Command: cmd}
	owners := make(map[string]string)

	for _, g := range pkg.Groups {
		if !g.Active {
			e.logger.Debug("skipping inactive group", "group", g.Name)
			continue
		}
		for _, c := range g.Collectors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cc, err := e.compile(c)
			if err != nil {
				return nil, err
			}
			items, ignored, err := e.collectOne(cmd, g, cc)
			if err != nil {
				return nil, err
			}
			result.IgnoredCount += ignored
			for _, it := range items {
				if prev, dup := owners[it.Node.Path]; dup {
					return nil, issue.Configuration(issue.CodeDuplicateCollectPath, it.Node.Path, ErrDuplicateCollectPath,
						"asset collected by %s and again by %s (group %s)", prev, cc.CollectPath, g.Name)
				}
				owners[it.Node.Path] = cc.CollectPath
			}
			result.Items = append(result.Items, items...)
			e.logger.Debug("collector done", "group", g.Name, "collector", cc.CollectPath, "items", len(items))
		}
	}

	if cmd.EnableAddressable {
		if err := checkAddresses(result.Items, "package "+pkg.Name); err != nil {
			return nil, err
		}
	}
	e.logger.Info("collection finished", "package", pkg.Name, "items", len(result.Items), "ignored", result.IgnoredCount)
	return result, nil
}

func (e *Engine) collectOne(cmd *Command, g Group, cc *compiledCollector) ([]*Item, int, error) {
	switch {
	case cc.Kind == KindStatic && cmd.IsSet(IgnoreStaticCollector):
		return nil, 0, nil
	case cc.Kind == KindDependency && cmd.IsSet(IgnoreDependCollector):
		return nil, 0, nil
	}

	var candidates []string
	if cc.folder {
		candidates = e.findAssets(cc.CollectPath, cc.filter.FindKind())
	} else {
		candidates = []string{cc.CollectPath}
	}

	var items []*Item
	seen := make(map[string]bool, len(candidates))
	ignored := 0
	for _, p := range candidates {
		node := e.node(p)
		if cmd.IgnoreRule.IsIgnored(node) {
			ignored++
			continue
		}
		data := rules.Data{AssetPath: p, CollectPath: cc.CollectPath, GroupName: g.Name, UserData: cc.UserData}
		if !cc.filter.IsCollectable(data) {
			continue
		}
		if seen[p] {
			return nil, 0, issue.Configuration(issue.CodeDuplicateCollectPath, p, ErrDuplicateCollectPath,
				"asset found twice by collector %s", cc.CollectPath)
		}
		seen[p] = true
		it, err := e.newItem(cmd, g, cc, node, data)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}

	if cmd.EnableAddressable {
		if err := checkAddresses(items, "collector "+cc.CollectPath); err != nil {
			return nil, 0, err
		}
	}
	return items, ignored, nil
}

// findAssets returns the non-folder assets below folder, restricted to kind when set.
func (e *Engine) findAssets(folder string, kind asset.Kind) []string {
	prefix := folder + "/"
	var out []string
	for _, p := range e.db.AllPaths() {
		if !strings.HasPrefix(p, prefix) || e.db.IsFolder(p) {
			continue
		}
		if kind != "" && e.db.KindOf(p) != kind {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (e *Engine) node(p string) asset.Node {
	guid, _ := e.db.GUIDForPath(p)
	return asset.Node{GUID: guid, Path: p, Kind: e.db.KindOf(p)}
}

func (e *Engine) newItem(cmd *Command, g Group, cc *compiledCollector, node asset.Node, data rules.Data) (*Item, error) {
	it := &Item{
		Kind:        cc.Kind,
		Node:        node,
		CollectPath: cc.CollectPath,
		GroupName:   g.Name,
	}
	if cmd.EnableAddressable && cc.Kind == KindMain {
		it.Address = cc.address.Address(data)
	}

	if cmd.AutoCollectShaders && node.Kind.IsShader() {
		it.BundleName = cmd.ShadersBundleName()
	} else {
		res := cc.pack.Pack(data)
		if !res.Valid() {
			return nil, issue.Configuration(issue.CodeEmptyBundleName, node.Path, ErrEmptyBundleName,
				"pack rule %s returned no bundle name in collector %s", cc.PackRuleName, cc.CollectPath)
		}
		it.BundleName = res.FullName(cmd.PackageName, cmd.UniqueBundleName)
	}

	it.Tags = SplitTags(cc.Tags)
	if cc.Kind == KindMain {
		it.Tags = appendUnique(it.Tags, SplitTags(g.Tags)...)
	}

	deps, err := e.dependencies(cmd, node.Path)
	if err != nil {
		return nil, err
	}
	it.Dependencies = deps
	return it, nil
}

func (e *Engine) dependencies(cmd *Command, mainPath string) ([]asset.Node, error) {
	if cmd.IsSet(IgnoreGetDependencies) || e.deps == nil {
		return nil, nil
	}
	paths, err := e.deps.Resolve(mainPath, true)
	if err != nil {
		return nil, err
	}
	out := make([]asset.Node, 0, len(paths))
	for _, p := range paths {
		if p == mainPath {
			continue
		}
		n := e.node(p)
		if cmd.IgnoreRule.IsIgnored(n) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// checkAddresses rejects asset-path addresses and duplicate addresses among main items.
func checkAddresses(items []*Item, scope string) error {
	owners := make(map[string]string)
	for _, it := range items {
		if it.Kind != KindMain || it.Address == "" {
			continue
		}
		if strings.HasPrefix(it.Address, "Assets/") || strings.HasPrefix(it.Address, "assets/") {
			return issue.Configuration(issue.CodeInvalidAddress, it.Node.Path, ErrInvalidAddress,
				"address %q in %s is an asset path", it.Address, scope)
		}
		if prev, dup := owners[it.Address]; dup {
			return issue.Configuration(issue.CodeDuplicateAddress, it.Address, ErrDuplicateAddress,
				"address %q in %s is used by %s and %s", it.Address, scope, prev, it.Node.Path)
		}
		owners[it.Address] = it.Node.Path
	}
	return nil
}
