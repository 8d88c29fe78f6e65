// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs the ordered build tasks over an explicit build Context:
// prepare, load, collect and resolve, compile, verify, encrypt, update bundle
// info, manifest, copy, report and cache save. Each task completes before the
// next one starts and the first failure aborts the run.
package pipeline
