// SPDX-License-Identifier: MPL-2.0

// Package report writes the TOML audit report of a build and the unified diff of
// a manifest against the previous version of the package.
package report
