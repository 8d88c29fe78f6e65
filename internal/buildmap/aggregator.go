// SPDX-License-Identifier: MPL-2.0

package buildmap

import (
	"errors"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/issue"
)

var (
	// ErrDuplicateItem is returned when an asset is packed twice into one bundle.
	ErrDuplicateItem = errors.New("asset already packed into bundle")
	// ErrUnknownBundle is returned when a bundle name was never packed.
	ErrUnknownBundle = errors.New("unknown bundle")
)

type (
	// FileInfo describes the published file of a bundle. The pipeline fills it after
	// compilation.
	FileInfo struct {
		// ContentHash and ContentCRC come from the archive compiler.
		ContentHash string
		ContentCRC  uint32
		// FileHash, FileCRC and FileSize describe the final, possibly encrypted, file.
		FileHash string
		FileCRC  uint32
		FileSize int64
		// OutputPath is the compiler output.
		OutputPath string
		// EncryptedPath is the encrypted copy, when the bundle was encrypted.
		EncryptedPath string
		// SourcePath is the file that gets published (OutputPath or EncryptedPath).
		SourcePath string
		// DestPath is the published file inside the version directory.
		DestPath  string
		Encrypted bool
	}

	// Bundle is one packing unit. Items keep insertion order.
	Bundle struct {
		Name  string
		File  FileInfo
		items []*Item
		index map[string]*Item
	}

	// Build is one entry of the packing input handed to an archive compiler.
	Build struct {
		BundleName string
		AssetPaths []string
	}

	// Aggregator groups items into bundles keyed by bundle name.
	Aggregator struct {
		bundles       map[string]*Bundle
		order         []*Bundle
		spriteAtlases []*Item
	}
)

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{bundles: make(map[string]*Bundle)}
}

func newBundle(name string) *Bundle {
	return &Bundle{Name: name, index: make(map[string]*Item)}
}

// Assign packs item into the bundle of its bundle name, creating the bundle on
// first use.
func (a *Aggregator) Assign(item *Item) error {
	name := item.BundleName()
	if name == "" {
		return issue.InternalInvariant(issue.CodeEmptyBundleName, item.Path(), ErrEmptyBundleName,
			"item packed without bundle name")
	}
	b, ok := a.bundles[name]
	if !ok {
		b = newBundle(name)
		a.bundles[name] = b
		a.order = append(a.order, b)
	}
	if _, dup := b.index[item.Path()]; dup {
		return issue.InternalInvariant(issue.CodeDuplicateItem, item.Path(), ErrDuplicateItem,
			"asset already packed into bundle %s", name)
	}
	b.index[item.Path()] = item
	b.items = append(b.items, item)
	if item.Node.Kind == asset.KindSpriteAtlas {
		a.spriteAtlases = append(a.spriteAtlases, item)
	}
	return nil
}

// CreateEmptyBundle registers a bundle with no items, for engine-internal bundles
// produced by the compiler. Existing bundles are left untouched.
func (a *Aggregator) CreateEmptyBundle(name string) {
	if _, ok := a.bundles[name]; ok {
		return
	}
	b := newBundle(name)
	a.bundles[name] = b
	a.order = append(a.order, b)
}

// Has reports whether a bundle exists.
func (a *Aggregator) Has(name string) bool {
	_, ok := a.bundles[name]
	return ok
}

// Bundle returns the bundle with the given name.
func (a *Aggregator) Bundle(name string) (*Bundle, error) {
	b, ok := a.bundles[name]
	if !ok {
		return nil, issue.InternalInvariant(issue.CodeUnknownBundle, name, ErrUnknownBundle,
			"bundle was never assigned")
	}
	return b, nil
}

// Bundles returns every bundle in creation order.
func (a *Aggregator) Bundles() []*Bundle {
	out := make([]*Bundle, len(a.order))
	copy(out, a.order)
	return out
}

// Len returns the number of bundles.
func (a *Aggregator) Len() int { return len(a.order) }

// SpriteAtlases returns the packed sprite atlas items.
func (a *Aggregator) SpriteAtlases() []*Item { return a.spriteAtlases }

// Contents returns the manifest-visible items of a bundle plus the unbundled
// dependency items reachable from any of its items.
func (a *Aggregator) Contents(name string) ([]*Item, error) {
	b, err := a.Bundle(name)
	if err != nil {
		return nil, err
	}
	return b.Contents(), nil
}

// Grouping returns the ordered bundle name to asset paths packing input. Bundles
// without items are omitted.
func (a *Aggregator) Grouping() []Build {
	out := make([]Build, 0, len(a.order))
	for _, b := range a.order {
		if len(b.items) == 0 {
			continue
		}
		out = append(out, Build{BundleName: b.Name, AssetPaths: b.AssetPaths()})
	}
	return out
}

// ManifestItems returns the manifest-visible items of every bundle in bundle order.
func (a *Aggregator) ManifestItems() []*Item {
	var out []*Item
	for _, b := range a.order {
		out = append(out, b.ManifestItems()...)
	}
	return out
}

// Items returns the packed items in insertion order.
func (b *Bundle) Items() []*Item { return b.items }

// Contains reports whether assetPath is packed into b.
func (b *Bundle) Contains(assetPath string) bool {
	_, ok := b.index[assetPath]
	return ok
}

// Item returns the packed item for assetPath.
func (b *Bundle) Item(assetPath string) (*Item, bool) {
	it, ok := b.index[assetPath]
	return it, ok
}

// AssetPaths returns the packed asset paths in insertion order.
func (b *Bundle) AssetPaths() []string {
	out := make([]string, len(b.items))
	for i, it := range b.items {
		out[i] = it.Path()
	}
	return out
}

// ManifestItems returns the main-collector items of b.
func (b *Bundle) ManifestItems() []*Item {
	var out []*Item
	for _, it := range b.items {
		if it.Kind == collect.KindMain {
			out = append(out, it)
		}
	}
	return out
}

// Contents returns the manifest-visible items of b plus the unbundled dependency
// items reachable from any packed item, without duplicates.
func (b *Bundle) Contents() []*Item {
	seen := make(map[string]bool)
	var out []*Item
	add := func(it *Item) {
		if !seen[it.Path()] {
			seen[it.Path()] = true
			out = append(out, it)
		}
	}
	for _, it := range b.items {
		if it.Kind == collect.KindMain {
			add(it)
		}
	}
	for _, it := range b.items {
		for _, dep := range it.deps {
			if !dep.HasBundle() {
				add(dep)
			}
		}
	}
	return out
}
