// SPDX-License-Identifier: MPL-2.0

package rules

import (
	"path"
	"strings"

	"github.com/invowk/bundlemap/internal/asset"
)

const (
	// BundleExtension is the extension of regular bundles.
	BundleExtension = "bundle"
	// RawFileExtension is the extension of raw file bundles.
	RawFileExtension = "rawfile"

	// ShadersBundleName is the base name of the shared shader bundle.
	ShadersBundleName = "unityshaders"
	// MonoScriptsBundleName is the base name of the engine script bundle.
	MonoScriptsBundleName = "unitymonoscripts"

	sharePrefix = "share_"
)

type (
	// Data is the input of every collection rule.
	Data struct {
		AssetPath   string
		CollectPath string
		GroupName   string
		UserData    string
	}

	// FilterRule decides which candidate assets a folder collector keeps.
	FilterRule interface {
		// FindKind restricts the folder scan to one kind. Empty means every kind.
		FindKind() asset.Kind
		IsCollectable(data Data) bool
	}

	// AddressRule computes the load address of a main asset.
	AddressRule interface {
		Address(data Data) string
	}

	// PackRule computes the bundle an asset is packed into.
	PackRule interface {
		Pack(data Data) PackResult
	}

	// IgnoreRule is the package-wide negative filter, applied before any filter
	// rule and again to every resolved dependency.
	IgnoreRule interface {
		IsIgnored(node asset.Node) bool
	}

	// PackResult is a raw bundle name and extension returned by a PackRule.
	PackResult struct {
		BundleName string
		Extension  string
	}
)

// Valid reports whether the result names a bundle.
func (r PackResult) Valid() bool {
	return r.BundleName != "" && r.Extension != ""
}

// FullName returns the normalized bundle file name: separators, dots and spaces
// become underscores, the name is lower-cased, the extension appended, and
// "{packageName}_" prepended when unique is set.
func (r PackResult) FullName(packageName string, unique bool) string {
	name := normalize(r.BundleName) + "." + r.Extension
	if unique {
		name = packageName + "_" + name
	}
	return strings.ToLower(name)
}

// ShareName returns the normalized name of the shared bundle for this result.
func (r PackResult) ShareName(packageName string, unique bool) string {
	return PackResult{BundleName: sharePrefix + normalize(r.BundleName), Extension: r.Extension}.FullName(packageName, unique)
}

func normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.NewReplacer("/", "_", ".", "_", " ", "_").Replace(name)
}

// ShadersPackResult is the pack result of the shared shader bundle.
func ShadersPackResult() PackResult {
	return PackResult{BundleName: ShadersBundleName, Extension: BundleExtension}
}

// MonoScriptsPackResult is the pack result of the engine script bundle.
func MonoScriptsPackResult() PackResult {
	return PackResult{BundleName: MonoScriptsBundleName, Extension: BundleExtension}
}

// SharePackResult is the default shared-bundle candidate of an asset: its parent folder.
func SharePackResult(assetPath string) PackResult {
	return PackResult{BundleName: asset.Dir(assetPath), Extension: BundleExtension}
}

// removeExtension strips the extension of the last path element.
func removeExtension(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}
