// SPDX-License-Identifier: MPL-2.0

// Package asset defines the identity model shared by every build phase: stable
// identifiers, asset kinds, and the Database collaborator that answers path and
// identifier queries for a project.
package asset

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// KindGeneric is any asset without special packing semantics.
	KindGeneric Kind = "generic"
	// KindFolder is a directory. Folders have identifiers but are never packed.
	KindFolder Kind = "folder"
	// KindShader is a shader source; shaders may be redirected to the shared shader bundle.
	KindShader Kind = "shader"
	// KindSpriteAtlas is a sprite atlas definition.
	KindSpriteAtlas Kind = "sprite_atlas"
	// KindScene is a scene file.
	KindScene Kind = "scene"
	// KindPrefab is a prefab file.
	KindPrefab Kind = "prefab"
	// KindTexture is an image asset.
	KindTexture Kind = "texture"
	// KindScript is a source script. Scripts are compiled, not packed.
	KindScript Kind = "script"

	// RootFolder is the top-level folder every packable asset path starts with.
	RootFolder = "Assets"

	guidLength = 32
)

// ErrInvalidGUID is returned when a GUID value is not 32 lowercase hex characters.
var ErrInvalidGUID = errors.New("invalid guid")

type (
	// GUID is the stable identity of an asset. It survives renames and moves.
	GUID string

	// Kind tags an asset with the packing semantics of its type.
	Kind string

	// Node is an asset identity with its current logical path. The GUID is fixed
	// for the node's lifetime; the path is re-resolved every run.
	Node struct {
		GUID GUID
		Path string
		Kind Kind
	}

	// Database is the authoritative asset index of a project. It plays the role of
	// the engine's asset database: it enumerates assets, maps paths to identifiers
	// and back, and answers non-recursive dependency queries.
	Database interface {
		// AllPaths returns every existing asset path, folders included, sorted.
		AllPaths() []string
		// GUIDForPath returns the identifier of an existing asset.
		GUIDForPath(assetPath string) (GUID, bool)
		// PathForGUID returns the current path of an identifier.
		PathForGUID(guid GUID) (string, bool)
		// IsFolder reports whether assetPath is an existing folder.
		IsFolder(assetPath string) bool
		// KindOf returns the kind of an existing asset, or KindGeneric.
		KindOf(assetPath string) Kind
		// Fingerprint returns the dependency fingerprint of an asset: a hash of its
		// content, metadata, target platform and importer version. It never
		// depends on the path.
		Fingerprint(assetPath string) (string, error)
		// DirectDependencies returns the paths the asset references directly.
		DirectDependencies(assetPath string) ([]string, error)
		// FileSize returns the size in bytes of an asset file (0 for folders).
		FileSize(assetPath string) int64
	}

	// InvalidGUIDError is returned when a GUID fails validation.
	// It wraps ErrInvalidGUID for errors.Is() compatibility.
	InvalidGUIDError struct {
		Value GUID
	}
)

func (e *InvalidGUIDError) Error() string {
	return fmt.Sprintf("invalid guid %q (want 32 lowercase hex characters)", string(e.Value))
}

func (e *InvalidGUIDError) Unwrap() error {
	return ErrInvalidGUID
}

// Validate checks that g is 32 lowercase hex characters.
func (g GUID) Validate() error {
	if len(g) != guidLength {
		return &InvalidGUIDError{Value: g}
	}
	for _, r := range g {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return &InvalidGUIDError{Value: g}
		}
	}
	return nil
}

func (g GUID) String() string { return string(g) }

// IsShader reports whether the kind is redirected to the shared shader bundle.
func (k Kind) IsShader() bool { return k == KindShader }

// KindFromPath classifies a file path by extension. Folders must be classified by
// the caller since a path alone cannot tell.
func KindFromPath(assetPath string) Kind {
	switch strings.ToLower(path.Ext(assetPath)) {
	case ".shader":
		return KindShader
	case ".spriteatlas", ".spriteatlasv2":
		return KindSpriteAtlas
	case ".unity":
		return KindScene
	case ".prefab":
		return KindPrefab
	case ".png", ".jpg", ".jpeg", ".psd", ".tga", ".exr":
		return KindTexture
	case ".cs":
		return KindScript
	default:
		return KindGeneric
	}
}

// CleanPath normalizes an asset path to forward slashes without a trailing slash.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// Dir returns the parent folder of an asset path ("" for a root-level path).
func Dir(assetPath string) string {
	d := path.Dir(CleanPath(assetPath))
	if d == "." {
		return ""
	}
	return d
}

// FileNameWithoutExt returns the base name of an asset path without its extension.
func FileNameWithoutExt(assetPath string) string {
	base := path.Base(assetPath)
	return strings.TrimSuffix(base, path.Ext(base))
}
