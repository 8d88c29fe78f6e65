// SPDX-License-Identifier: MPL-2.0

package assetdb

import (
	"fmt"
	"os"
	"strings"

	"github.com/invowk/bundlemap/internal/asset"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	// MetaExt is the sidecar file extension.
	MetaExt = ".meta"

	metaFormatVersion = 2
)

// Meta is the content of a .meta sidecar.
type Meta struct {
	FileFormatVersion int        `yaml:"fileFormatVersion"`
	GUID              asset.GUID `yaml:"guid"`
	// Importer names the importer that processes the asset (optional).
	Importer string `yaml:"importer,omitempty"`
	// UserData is free-form importer data (optional).
	UserData string `yaml:"userData,omitempty"`
}

// pathNamespace seeds PathGUID.
var pathNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bundlemap:asset-path"))

// NewGUID mints a new random asset identifier.
func NewGUID() asset.GUID {
	return asset.GUID(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// PathGUID derives the identifier of an asset whose sidecar is not persisted. The
// same path always yields the same identifier.
func PathGUID(assetPath string) asset.GUID {
	return asset.GUID(strings.ReplaceAll(uuid.NewSHA1(pathNamespace, []byte(assetPath)).String(), "-", ""))
}

// readMeta loads the sidecar of an asset. A missing sidecar returns (nil, nil, nil).
func readMeta(metaPath string) (*Meta, []byte, error) {
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read meta file: %w", err)
	}
	var m Meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("parse meta file %s: %w", metaPath, err)
	}
	m.GUID = asset.GUID(strings.ToLower(string(m.GUID)))
	return &m, data, nil
}

// encodeMeta serializes a sidecar.
func encodeMeta(m *Meta) ([]byte, error) {
	if m.FileFormatVersion == 0 {
		m.FileFormatVersion = metaFormatVersion
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}
	return data, nil
}

// writeMeta writes a sidecar next to the asset.
func writeMeta(metaPath string, data []byte) error {
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return fmt.Errorf("write meta file: %w", err)
	}
	return nil
}
