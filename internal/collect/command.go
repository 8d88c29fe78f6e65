// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"github.com/invowk/bundlemap/internal/rules"
)

// Collection flags.
const (
	// IgnoreGetDependencies skips dependency resolution; every item gets an empty list.
	IgnoreGetDependencies Flags = 1 << 0
	// IgnoreStaticCollector skips static collectors.
	IgnoreStaticCollector Flags = 1 << 1
	// IgnoreDependCollector skips dependency-only collectors.
	IgnoreDependCollector Flags = 1 << 2
)

type (
	// Flags is a bit set of collection flags.
	Flags uint8

	// Command is the resolved, package-wide collection options of one run.
	Command struct {
		PackageName string
		// IgnoreRuleName is the configured name of IgnoreRule.
		IgnoreRuleName string
		IgnoreRule     rules.IgnoreRule
		Flags          Flags

		UniqueBundleName     bool
		UseDependencyCache   bool
		EnableAddressable    bool
		SupportExtensionless bool
		LocationToLower      bool
		IncludeAssetGUID     bool
		AutoCollectShaders   bool
	}
)

// SetFlag turns a flag on or off.
func (c *Command) SetFlag(flag Flags, on bool) {
	if on {
		c.Flags |= flag
	} else {
		c.Flags &^= flag
	}
}

// IsSet reports whether flag is on.
func (c *Command) IsSet(flag Flags) bool {
	return c.Flags&flag != 0
}

// SetSimulateBuild toggles every flag that a simulated build skips.
func (c *Command) SetSimulateBuild(on bool) {
	c.SetFlag(IgnoreGetDependencies, on)
	c.SetFlag(IgnoreStaticCollector, on)
	c.SetFlag(IgnoreDependCollector, on)
}

// ShadersBundleName returns the full name of the shared shader bundle.
func (c *Command) ShadersBundleName() string {
	return rules.ShadersPackResult().FullName(c.PackageName, c.UniqueBundleName)
}

// MonoScriptsBundleName returns the full name of the engine script bundle.
func (c *Command) MonoScriptsBundleName() string {
	return rules.MonoScriptsPackResult().FullName(c.PackageName, c.UniqueBundleName)
}
