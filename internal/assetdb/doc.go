// SPDX-License-Identifier: MPL-2.0

// Package assetdb implements asset.Database over a project directory on disk.
//
// The project root contains an Assets/ tree. Every file and folder X may carry an
// X.meta YAML sidecar holding its stable guid. Assets without a sidecar get a freshly
// minted GUID written back when Options.WriteMissingMeta is set, and a GUID derived from
// their path otherwise. Text-serialized
// assets are scanned for "guid: <hex>" references to derive direct dependencies, and
// every asset gets a fingerprint over its content, its sidecar, the target platform
// and the importer version.
package assetdb
