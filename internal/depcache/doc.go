// SPDX-License-Identifier: MPL-2.0

// Package depcache implements the persistent dependency cache.
//
// The cache maps every asset path of the current scan to its dependency
// fingerprint and the identifiers of its direct dependencies. Edges are stored
// by identifier and converted back to paths lazily during resolution, so a
// rename or move of a dependency never invalidates the assets that reference it.
// Entries are recomputed only when their fingerprint changes.
//
// The cache file is read once by Open and written once by Save. Callers must
// serialize runs that share a cache file.
package depcache
