// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/invowk/bundlemap/internal/rules"
)

const (
	// KindNone marks an asset that no collector named. Only the graph resolver
	// creates items of this kind.
	KindNone CollectorKind = "none"
	// KindMain collects manifest-visible, addressable assets.
	KindMain CollectorKind = "main"
	// KindStatic collects assets that are packed but not addressable.
	KindStatic CollectorKind = "static"
	// KindDependency collects assets that are packed only if something depends on them.
	KindDependency CollectorKind = "dependency"
)

// ErrInvalidCollectorKind is the sentinel for invalid CollectorKind values.
var ErrInvalidCollectorKind = errors.New("invalid collector kind")

type (
	// CollectorKind is the role of a collector.
	CollectorKind string

	// InvalidCollectorKindError is returned when a CollectorKind value is not recognized.
	// It wraps ErrInvalidCollectorKind for errors.Is() compatibility.
	InvalidCollectorKindError struct {
		Value CollectorKind
	}

	// Package is the collection tree of one asset package.
	Package struct {
		Name                 string  `json:"name" mapstructure:"name"`
		EnableAddressable    bool    `json:"enable_addressable" mapstructure:"enable_addressable"`
		SupportExtensionless bool    `json:"support_extensionless" mapstructure:"support_extensionless"`
		LocationToLower      bool    `json:"location_to_lower" mapstructure:"location_to_lower"`
		IncludeAssetGUID     bool    `json:"include_asset_guid" mapstructure:"include_asset_guid"`
		AutoCollectShaders   bool    `json:"auto_collect_shaders" mapstructure:"auto_collect_shaders"`
		IgnoreRuleName       string  `json:"ignore_rule" mapstructure:"ignore_rule"`
		Groups               []Group `json:"groups" mapstructure:"groups"`
	}

	// Group is a named set of collectors sharing tags.
	Group struct {
		Name string `json:"name" mapstructure:"name"`
		// Tags are ';' separated and apply to the main items of the group.
		Tags       string      `json:"tags" mapstructure:"tags"`
		Active     bool        `json:"active" mapstructure:"active"`
		Collectors []Collector `json:"collectors" mapstructure:"collectors"`
	}

	// Collector enumerates one asset or folder.
	Collector struct {
		CollectPath     string        `json:"collect_path" mapstructure:"collect_path"`
		Kind            CollectorKind `json:"kind" mapstructure:"kind"`
		FilterRuleName  string        `json:"filter_rule" mapstructure:"filter_rule"`
		AddressRuleName string        `json:"address_rule" mapstructure:"address_rule"`
		PackRuleName    string        `json:"pack_rule" mapstructure:"pack_rule"`
		// Tags are ';' separated.
		Tags     string `json:"tags" mapstructure:"tags"`
		UserData string `json:"user_data" mapstructure:"user_data"`
	}
)

func (e *InvalidCollectorKindError) Error() string {
	return fmt.Sprintf("invalid collector kind %q (valid: main, static, dependency)", e.Value)
}

func (e *InvalidCollectorKindError) Unwrap() error { return ErrInvalidCollectorKind }

// Validate reports whether k is a kind a collector may declare. KindNone is rejected.
func (k CollectorKind) Validate() error {
	switch k {
	case KindMain, KindStatic, KindDependency:
		return nil
	default:
		return &InvalidCollectorKindError{Value: k}
	}
}

func (k CollectorKind) String() string { return string(k) }

// WithDefaults fills unset rule names with the defaults: CollectAll,
// AddressByFileName, PackDirectory and a main collector.
func (c Collector) WithDefaults() Collector {
	if c.Kind == "" {
		c.Kind = KindMain
	}
	if c.FilterRuleName == "" {
		c.FilterRuleName = rules.CollectAllName
	}
	if c.AddressRuleName == "" {
		c.AddressRuleName = rules.AddressByFileNameName
	}
	if c.PackRuleName == "" {
		c.PackRuleName = rules.PackDirectoryName
	}
	return c
}

// IgnoreRuleOrDefault returns the configured ignore rule name, or NormalIgnoreRule.
func (p Package) IgnoreRuleOrDefault() string {
	if p.IgnoreRuleName == "" {
		return rules.NormalIgnoreRuleName
	}
	return p.IgnoreRuleName
}

// SplitTags splits a ';' separated tag list, trimming blanks and duplicates while
// preserving order.
func SplitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ";") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = appendUnique(out, t)
		}
	}
	return out
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}
