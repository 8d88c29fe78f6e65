// SPDX-License-Identifier: MPL-2.0

// Package manifest resolves the final package manifest from the bundle grouping:
// stable bundle indices, per-asset and per-bundle dependency arrays and bundle
// tags. It also holds the binary and JSON codecs, the manifest process/restore
// services and the writer of the manifest output files.
package manifest
