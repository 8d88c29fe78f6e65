// SPDX-License-Identifier: MPL-2.0

// Package issue provides the error taxonomy and user-facing error handling for bundlemap.
//
// Build failures are classified by Kind (configuration, cache inconsistency, packing
// inconsistency, internal invariant). BuildError carries the kind together with a
// machine-readable Code and the asset or bundle that triggered it, and unwraps to both the
// kind sentinel and the specific sentinel of the failing package. Advisory conditions are
// collected as Diagnostic values instead of failing the run.
//
// ActionableError adds operation, resource and remediation hints for CLI output, and the
// Markdown catalog (Get/ForCode) documents each fatal code.
package issue
