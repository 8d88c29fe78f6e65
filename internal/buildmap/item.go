// SPDX-License-Identifier: MPL-2.0

package buildmap

import (
	"errors"
	"slices"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/issue"
)

var (
	// ErrBundleReassigned is returned when a bundle name is assigned twice.
	ErrBundleReassigned = errors.New("bundle name already assigned")
	// ErrDependenciesReassigned is returned when a dependency list is set twice.
	ErrDependenciesReassigned = errors.New("dependency list already set")
	// ErrEmptyBundleName is returned when an empty bundle name is assigned or packed.
	ErrEmptyBundleName = errors.New("empty bundle name")
	// ErrEmptyReference is returned when a reference names no bundle.
	ErrEmptyReference = errors.New("reference without bundle name")
)

type (
	// Assignment is a set-once bundle name. The zero value is unassigned and the only
	// transition is to assigned.
	Assignment struct {
		name string
	}

	// Item is a node of the build graph.
	Item struct {
		Node asset.Node
		// Kind is KindNone for items that are only reachable as dependencies.
		Kind    collect.CollectorKind
		Address string
		Tags    []string

		bundle     Assignment
		references []string

		collected *collect.Item
		deps      []*Item
		depsSet   bool
	}
)

// Name returns the assigned bundle name and whether one is assigned.
func (a Assignment) Name() (string, bool) {
	return a.name, a.name != ""
}

func (a Assignment) assign(name string, resource string) (Assignment, error) {
	if name == "" {
		return a, issue.InternalInvariant(issue.CodeEmptyBundleName, resource, ErrEmptyBundleName,
			"empty bundle name assigned")
	}
	if a.name != "" {
		return a, issue.InternalInvariant(issue.CodeBundleReassigned, resource, ErrBundleReassigned,
			"bundle %q already assigned, refusing %q", a.name, name)
	}
	return Assignment{name: name}, nil
}

func newCollectedItem(c *collect.Item) (*Item, error) {
	it := &Item{
		Node:      c.Node,
		Kind:      c.Kind,
		Address:   c.Address,
		collected: c,
	}
	if c.BundleName != "" {
		if err := it.AssignBundle(c.BundleName); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func newDependencyItem(n asset.Node) *Item {
	return &Item{Node: n, Kind: collect.KindNone}
}

// Path returns the asset path of the item.
func (it *Item) Path() string { return it.Node.Path }

// BundleName returns the assigned bundle name, or "".
func (it *Item) BundleName() string {
	name, _ := it.bundle.Name()
	return name
}

// HasBundle reports whether a bundle name is assigned.
func (it *Item) HasBundle() bool {
	_, ok := it.bundle.Name()
	return ok
}

// AssignBundle sets the bundle name. A second assignment is an internal invariant
// violation.
func (it *Item) AssignBundle(name string) error {
	next, err := it.bundle.assign(name, it.Node.Path)
	if err != nil {
		return err
	}
	it.bundle = next
	return nil
}

// addTags sets the tags once, dropping duplicates.
func (it *Item) addTags(tags []string) {
	for _, t := range tags {
		if !slices.Contains(it.Tags, t) {
			it.Tags = append(it.Tags, t)
		}
	}
}

func (it *Item) addReference(bundleName string) error {
	if bundleName == "" {
		return issue.InternalInvariant(issue.CodeEmptyBundleName, it.Node.Path, ErrEmptyReference,
			"dependency referenced from an item without bundle")
	}
	if !slices.Contains(it.references, bundleName) {
		it.references = append(it.references, bundleName)
	}
	return nil
}

// ReferenceCount returns the number of distinct bundles whose items depend on this item.
func (it *Item) ReferenceCount() int { return len(it.references) }

// ReferenceBundles returns the referencing bundle names in first-reference order.
func (it *Item) ReferenceBundles() []string { return slices.Clone(it.references) }

// Dependencies returns the resolved dependency items. Dependency-only items have none.
func (it *Item) Dependencies() []*Item { return it.deps }

// Collected reports whether a collector produced the item.
func (it *Item) Collected() bool { return it.collected != nil }

func (it *Item) setDependencies(deps []*Item) error {
	if it.depsSet {
		return issue.InternalInvariant(issue.CodeBundleReassigned, it.Node.Path, ErrDependenciesReassigned,
			"dependency list set twice")
	}
	it.deps = deps
	it.depsSet = true
	return nil
}
