// SPDX-License-Identifier: MPL-2.0

package rules

import (
	"strings"

	"github.com/invowk/bundlemap/internal/asset"
)

type (
	// PackSeparately packs every asset into its own bundle.
	PackSeparately struct{}
	// PackDirectory packs assets by parent folder.
	PackDirectory struct{}
	// PackTopDirectory packs assets by the first folder below the collect path.
	// Assets directly inside the collect path produce an empty result.
	PackTopDirectory struct{}
	// PackCollector packs everything a collector finds into one bundle.
	PackCollector struct{}
	// PackGroup packs everything in a group into one bundle.
	PackGroup struct{}
	// PackRawFile packs every asset into its own raw file bundle.
	PackRawFile struct{}
	// PackShader packs into the shared shader bundle.
	PackShader struct{}
)

func (PackSeparately) Pack(d Data) PackResult {
	return PackResult{BundleName: removeExtension(d.AssetPath), Extension: BundleExtension}
}

func (PackDirectory) Pack(d Data) PackResult {
	return PackResult{BundleName: asset.Dir(d.AssetPath), Extension: BundleExtension}
}

func (PackTopDirectory) Pack(d Data) PackResult {
	rel, ok := strings.CutPrefix(d.AssetPath, d.CollectPath+"/")
	if !ok {
		return PackResult{}
	}
	top, _, nested := strings.Cut(rel, "/")
	if !nested {
		return PackResult{}
	}
	return PackResult{BundleName: d.CollectPath + "/" + top, Extension: BundleExtension}
}

func (PackCollector) Pack(d Data) PackResult {
	name := d.CollectPath
	if d.CollectPath == d.AssetPath {
		name = removeExtension(name)
	}
	return PackResult{BundleName: name, Extension: BundleExtension}
}

func (PackGroup) Pack(d Data) PackResult {
	return PackResult{BundleName: d.GroupName, Extension: BundleExtension}
}

func (PackRawFile) Pack(d Data) PackResult {
	return PackResult{BundleName: d.AssetPath, Extension: RawFileExtension}
}

func (PackShader) Pack(Data) PackResult { return ShadersPackResult() }
