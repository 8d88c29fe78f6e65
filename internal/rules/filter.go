// SPDX-License-Identifier: MPL-2.0

package rules

import (
	"path"
	"strings"

	"github.com/invowk/bundlemap/internal/asset"

	"github.com/bmatcuk/doublestar/v4"
)

type (
	// CollectAll keeps every candidate.
	CollectAll struct{}
	// CollectScene keeps scene files.
	CollectScene struct{}
	// CollectPrefab keeps prefab files.
	CollectPrefab struct{}
	// CollectSprite keeps image files.
	CollectSprite struct{}
	// CollectShader keeps shader sources.
	CollectShader struct{}
	// CollectGlob keeps candidates whose path relative to the collect path matches
	// the doublestar pattern in Data.UserData. An empty pattern keeps everything.
	CollectGlob struct{}
)

func (CollectAll) FindKind() asset.Kind      { return "" }
func (CollectAll) IsCollectable(Data) bool { return true }

func (CollectScene) FindKind() asset.Kind { return asset.KindScene }
func (CollectScene) IsCollectable(d Data) bool {
	return strings.EqualFold(path.Ext(d.AssetPath), ".unity")
}

func (CollectPrefab) FindKind() asset.Kind { return asset.KindPrefab }
func (CollectPrefab) IsCollectable(d Data) bool {
	return strings.EqualFold(path.Ext(d.AssetPath), ".prefab")
}

func (CollectSprite) FindKind() asset.Kind { return asset.KindTexture }
func (CollectSprite) IsCollectable(d Data) bool {
	return asset.KindFromPath(d.AssetPath) == asset.KindTexture
}

func (CollectShader) FindKind() asset.Kind { return asset.KindShader }
func (CollectShader) IsCollectable(d Data) bool {
	return asset.KindFromPath(d.AssetPath).IsShader()
}

func (CollectGlob) FindKind() asset.Kind { return "" }
func (CollectGlob) IsCollectable(d Data) bool {
	if d.UserData == "" {
		return true
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(d.AssetPath, d.CollectPath), "/")
	matched, err := doublestar.Match(d.UserData, rel)
	return err == nil && matched
}

// ValidGlob reports whether pattern is a valid CollectGlob pattern.
func ValidGlob(pattern string) bool {
	return pattern == "" || doublestar.ValidatePattern(pattern)
}
