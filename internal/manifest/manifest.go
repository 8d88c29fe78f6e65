// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// FileVersion is the manifest format version.
	FileVersion = "1.0.0"

	// StyleHashName names published files after their hash.
	StyleHashName FileNameStyle = "HashName"
	// StyleBundleName names published files after their bundle.
	StyleBundleName FileNameStyle = "BundleName"
	// StyleBundleNameHashName appends the hash to the bundle name.
	StyleBundleNameHashName FileNameStyle = "BundleName_HashName"
)

// ErrInvalidFileNameStyle is returned for an unknown FileNameStyle.
var ErrInvalidFileNameStyle = errors.New("invalid file name style")

type (
	// FileNameStyle selects how published bundle files are named.
	FileNameStyle string

	// InvalidFileNameStyleError is returned when a FileNameStyle is not recognized.
	InvalidFileNameStyleError struct {
		Value FileNameStyle
	}

	// Manifest is the published record of a package build.
	Manifest struct {
		FileVersion          string        `json:"file_version"`
		EnableAddressable    bool          `json:"enable_addressable"`
		SupportExtensionless bool          `json:"support_extensionless"`
		LocationToLower      bool          `json:"location_to_lower"`
		IncludeAssetGUID     bool          `json:"include_asset_guid"`
		OutputNameStyle      FileNameStyle `json:"output_name_style"`
		BuildPipeline        string        `json:"build_pipeline"`
		PackageName          string        `json:"package_name"`
		PackageVersion       string        `json:"package_version"`
		PackageNote          string        `json:"package_note"`
		AssetList            []Asset       `json:"asset_list"`
		BundleList           []Bundle      `json:"bundle_list"`
	}

	// Asset is a manifest-visible asset.
	Asset struct {
		Address         string   `json:"address"`
		AssetPath       string   `json:"asset_path"`
		AssetGUID       string   `json:"asset_guid"`
		AssetTags       []string `json:"asset_tags"`
		BundleID        int      `json:"bundle_id"`
		DependBundleIDs []int    `json:"depend_bundle_ids"`
	}

	// Bundle is a published bundle file.
	Bundle struct {
		BundleName string `json:"bundle_name"`
		// UnityCRC is the content checksum reported by the archive compiler.
		UnityCRC  uint32   `json:"unity_crc"`
		FileHash  string   `json:"file_hash"`
		FileCRC   string   `json:"file_crc"`
		FileSize  int64    `json:"file_size"`
		Encrypted bool     `json:"encrypted"`
		Tags      []string `json:"tags"`
		// DependBundleIDs come from the archive compiler, not the asset graph.
		DependBundleIDs []int `json:"depend_bundle_ids"`
		// ReferenceBundleIDs are the bundles that depend on this one. They are derived
		// and never serialized.
		ReferenceBundleIDs []int `json:"-"`
	}
)

// Error implements error.
func (e *InvalidFileNameStyleError) Error() string {
	return fmt.Sprintf("invalid file name style %q (valid: HashName, BundleName, BundleName_HashName)", e.Value)
}

// Unwrap returns ErrInvalidFileNameStyle.
func (e *InvalidFileNameStyleError) Unwrap() error { return ErrInvalidFileNameStyle }

// Validate reports whether s is a known style.
func (s FileNameStyle) Validate() error {
	switch s {
	case StyleHashName, StyleBundleName, StyleBundleNameHashName:
		return nil
	default:
		return &InvalidFileNameStyleError{Value: s}
	}
}

// String returns the style name.
func (s FileNameStyle) String() string { return string(s) }

// FileName returns the published file name of a bundle.
func (s FileNameStyle) FileName(bundleName, fileHash string) string {
	ext := path.Ext(bundleName)
	switch s {
	case StyleHashName:
		return fileHash + ext
	case StyleBundleNameHashName:
		return strings.TrimSuffix(bundleName, ext) + "_" + fileHash + ext
	default:
		return bundleName
	}
}

// BundleIndex returns the index of a bundle by name.
func (m *Manifest) BundleIndex(name string) (int, bool) {
	for i := range m.BundleList {
		if m.BundleList[i].BundleName == name {
			return i, true
		}
	}
	return -1, false
}

// Asset returns the manifest asset with the given path.
func (m *Manifest) Asset(assetPath string) (*Asset, bool) {
	for i := range m.AssetList {
		if m.AssetList[i].AssetPath == assetPath {
			return &m.AssetList[i], true
		}
	}
	return nil, false
}

// NamesOf returns the bundle names of a bundle-id list.
func (m *Manifest) NamesOf(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < len(m.BundleList) {
			out = append(out, m.BundleList[id].BundleName)
		}
	}
	return out
}

// BundleNames returns every bundle name in index order.
func (m *Manifest) BundleNames() []string {
	out := make([]string, len(m.BundleList))
	for i, b := range m.BundleList {
		out[i] = b.BundleName
	}
	return out
}

// DependencyNames returns the names of the bundles a bundle depends on.
func (m *Manifest) DependencyNames(bundle string) []string {
	id, ok := m.BundleIndex(bundle)
	if !ok {
		return nil
	}
	return m.NamesOf(m.BundleList[id].DependBundleIDs)
}

// initReferences fills ReferenceBundleIDs from every DependBundleIDs list.
func (m *Manifest) initReferences() {
	for i := range m.BundleList {
		m.BundleList[i].ReferenceBundleIDs = nil
	}
	for i := range m.BundleList {
		for _, dep := range m.BundleList[i].DependBundleIDs {
			m.BundleList[dep].ReferenceBundleIDs = append(m.BundleList[dep].ReferenceBundleIDs, i)
		}
	}
}
