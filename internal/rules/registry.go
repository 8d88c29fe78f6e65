// SPDX-License-Identifier: MPL-2.0

package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/invowk/bundlemap/internal/issue"
)

// Built-in rule names. Names match the configuration values.
const (
	CollectAllName    = "CollectAll"
	CollectGlobName   = "CollectGlob"
	CollectSceneName  = "CollectScene"
	CollectPrefabName = "CollectPrefab"
	CollectSpriteName = "CollectSprite"
	CollectShaderName = "CollectShader"

	AddressByFileNameName          = "AddressByFileName"
	AddressByFolderAndFileNameName = "AddressByFolderAndFileName"
	AddressByGroupAndFileNameName  = "AddressByGroupAndFileName"
	AddressDisableName             = "AddressDisable"

	PackSeparatelyName   = "PackSeparately"
	PackDirectoryName    = "PackDirectory"
	PackTopDirectoryName = "PackTopDirectory"
	PackCollectorName    = "PackCollector"
	PackGroupName        = "PackGroup"
	PackRawFileName      = "PackRawFile"
	PackShaderName       = "PackShader"

	NormalIgnoreRuleName  = "NormalIgnoreRule"
	RawFileIgnoreRuleName = "RawFileIgnoreRule"
	GitignoreRuleName     = "GitignoreRule"
)

// Rule categories.
const (
	CategoryFilter  Category = "filter"
	CategoryAddress Category = "address"
	CategoryPack    Category = "pack"
	CategoryIgnore  Category = "ignore"
)

var (
	// ErrUnknownRule is returned when a rule name is not registered.
	ErrUnknownRule = errors.New("unknown rule")
	// ErrDuplicateRule is returned when a rule name is registered twice.
	ErrDuplicateRule = errors.New("rule already registered")
)

type (
	// Category is the kind of rule a name refers to.
	Category string

	// Registry maps rule names to rule implementations, one namespace per category.
	Registry struct {
		filters   map[string]FilterRule
		addresses map[string]AddressRule
		packs     map[string]PackRule
		ignores   map[string]IgnoreRule
	}
)

// NewRegistry returns a registry holding every built-in rule. GitignoreRule starts
// without patterns; replace it with SetIgnore once the ignore file is loaded.
func NewRegistry() *Registry {
	return &Registry{
		filters: map[string]FilterRule{
			CollectAllName:    CollectAll{},
			CollectGlobName:   CollectGlob{},
			CollectSceneName:  CollectScene{},
			CollectPrefabName: CollectPrefab{},
			CollectSpriteName: CollectSprite{},
			CollectShaderName: CollectShader{},
		},
		addresses: map[string]AddressRule{
			AddressByFileNameName:          AddressByFileName{},
			AddressByFolderAndFileNameName: AddressByFolderAndFileName{},
			AddressByGroupAndFileNameName:  AddressByGroupAndFileName{},
			AddressDisableName:             AddressDisable{},
		},
		packs: map[string]PackRule{
			PackSeparatelyName:   PackSeparately{},
			PackDirectoryName:    PackDirectory{},
			PackTopDirectoryName: PackTopDirectory{},
			PackCollectorName:    PackCollector{},
			PackGroupName:        PackGroup{},
			PackRawFileName:      PackRawFile{},
			PackShaderName:       PackShader{},
		},
		ignores: map[string]IgnoreRule{
			NormalIgnoreRuleName:  NormalIgnoreRule{},
			RawFileIgnoreRuleName: RawFileIgnoreRule{},
			GitignoreRuleName:     NewGitignoreRule(),
		},
	}
}

// RegisterFilter adds a filter rule.
func (r *Registry) RegisterFilter(name string, rule FilterRule) error {
	return register(r.filters, CategoryFilter, name, rule)
}

// RegisterAddress adds an address rule.
func (r *Registry) RegisterAddress(name string, rule AddressRule) error {
	return register(r.addresses, CategoryAddress, name, rule)
}

// RegisterPack adds a pack rule.
func (r *Registry) RegisterPack(name string, rule PackRule) error {
	return register(r.packs, CategoryPack, name, rule)
}

// RegisterIgnore adds an ignore rule.
func (r *Registry) RegisterIgnore(name string, rule IgnoreRule) error {
	return register(r.ignores, CategoryIgnore, name, rule)
}

// SetIgnore registers or replaces an ignore rule.
func (r *Registry) SetIgnore(name string, rule IgnoreRule) {
	r.ignores[name] = rule
}

func register[T any](m map[string]T, cat Category, name string, rule T) error {
	if _, exists := m[name]; exists {
		return fmt.Errorf("%w: %s rule %q", ErrDuplicateRule, cat, name)
	}
	m[name] = rule
	return nil
}

// Filter resolves a filter rule by name.
func (r *Registry) Filter(name string) (FilterRule, error) {
	return lookup(r.filters, CategoryFilter, name)
}

// Address resolves an address rule by name.
func (r *Registry) Address(name string) (AddressRule, error) {
	return lookup(r.addresses, CategoryAddress, name)
}

// Pack resolves a pack rule by name.
func (r *Registry) Pack(name string) (PackRule, error) {
	return lookup(r.packs, CategoryPack, name)
}

// Ignore resolves an ignore rule by name.
func (r *Registry) Ignore(name string) (IgnoreRule, error) {
	return lookup(r.ignores, CategoryIgnore, name)
}

func lookup[T any](m map[string]T, cat Category, name string) (T, error) {
	rule, ok := m[name]
	if !ok {
		var zero T
		return zero, issue.Configuration(issue.CodeUnknownRule, name, ErrUnknownRule,
			"%s rule %q is not registered", cat, name)
	}
	return rule, nil
}

// Names returns the registered rule names of a category, sorted.
func (r *Registry) Names(cat Category) []string {
	var names []string
	switch cat {
	case CategoryFilter:
		names = keys(r.filters)
	case CategoryAddress:
		names = keys(r.addresses)
	case CategoryPack:
		names = keys(r.packs)
	case CategoryIgnore:
		names = keys(r.ignores)
	}
	sort.Strings(names)
	return names
}

// Categories returns every rule category in display order.
func Categories() []Category {
	return []Category{CategoryFilter, CategoryAddress, CategoryPack, CategoryIgnore}
}

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
