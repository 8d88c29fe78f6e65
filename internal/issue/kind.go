// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// KindConfiguration marks errors the user fixes in the source configuration.
	KindConfiguration Kind = "configuration"
	// KindCacheInconsistency marks a corrupted or stale dependency cache. The cache
	// should be rebuilt from scratch on the next run.
	KindCacheInconsistency Kind = "cache_inconsistency"
	// KindPackingInconsistency marks packing results that cannot be published.
	KindPackingInconsistency Kind = "packing_inconsistency"
	// KindInternalInvariant marks a logic bug: a state the pipeline must never reach.
	KindInternalInvariant Kind = "internal_invariant"
	// KindAdvisory marks conditions that are reported but never abort a run.
	KindAdvisory Kind = "advisory"
)

// Machine-readable codes attached to BuildError and Diagnostic values.
const (
	CodeInvalidParameter     Code = "invalid_parameter"
	CodeOutputExists         Code = "output_exists"
	CodeInvalidCollector     Code = "invalid_collector"
	CodeUnknownRule          Code = "unknown_rule"
	CodeDuplicateCollectPath Code = "duplicate_collect_path"
	CodeDuplicateAddress     Code = "duplicate_address"
	CodeInvalidAddress       Code = "invalid_address"
	CodeEmptyBundleName      Code = "empty_bundle_name"
	CodeUnknownAsset         Code = "unknown_asset"
	CodeCacheLoadFailed      Code = "cache_load_failed"
	CodeMaterializeMiss      Code = "materialize_miss"
	CodeDuplicateBuildItem   Code = "duplicate_build_item"
	CodeBundleReassigned     Code = "bundle_reassigned"
	CodeDuplicateItem        Code = "duplicate_item"
	CodeUnknownBundle        Code = "unknown_bundle"
	CodeEmptyPackingSet      Code = "empty_packing_set"
	CodeHashConflict         Code = "hash_conflict"
	CodeBuildResultMismatch  Code = "build_result_mismatch"
	CodeBundleNameTooLong    Code = "bundle_name_too_long"
	CodeCompileFailed        Code = "compile_failed"

	CodeIndependentAsset  Code = "independent_asset"
	CodeRemovedTags       Code = "removed_invalid_tags"
	CodeMissingDependency Code = "missing_dependency"
	CodeStrayBundle       Code = "stray_bundle"
	CodeBundleCycle       Code = "bundle_cycle"
	CodeDuplicateGUID     Code = "duplicate_guid"
	CodeUnexpectedBundle  Code = "unexpected_bundle"
	CodeMissingBundle     Code = "missing_bundle"
)

var (
	// ErrConfiguration is the sentinel every configuration BuildError unwraps to.
	ErrConfiguration = errors.New("configuration error")
	// ErrCacheInconsistency is the sentinel every cache BuildError unwraps to.
	ErrCacheInconsistency = errors.New("dependency cache inconsistency")
	// ErrPackingInconsistency is the sentinel every packing BuildError unwraps to.
	ErrPackingInconsistency = errors.New("packing inconsistency")
	// ErrInternalInvariant is the sentinel every invariant BuildError unwraps to.
	ErrInternalInvariant = errors.New("internal invariant violated")
)

type (
	// Kind classifies a build failure.
	Kind string

	// Code is a stable machine-readable identifier for an error or diagnostic.
	Code string

	// BuildError is a fatal pipeline error. It unwraps to the sentinel of its Kind and
	// to Err, so both errors.Is(err, issue.ErrConfiguration) and
	// errors.Is(err, collect.ErrDuplicateAddress) hold for the same value.
	BuildError struct {
		Kind Kind
		Code Code
		// Resource is the asset path, bundle name or collector that triggered the error.
		Resource string
		Message  string
		// Err is the package-level sentinel (optional).
		Err error
	}
)

// Configuration creates a configuration BuildError.
func Configuration(code Code, resource string, sentinel error, format string, args ...any) *BuildError {
	return newBuildError(KindConfiguration, code, resource, sentinel, format, args...)
}

// CacheInconsistency creates a cache inconsistency BuildError.
func CacheInconsistency(code Code, resource string, sentinel error, format string, args ...any) *BuildError {
	return newBuildError(KindCacheInconsistency, code, resource, sentinel, format, args...)
}

// PackingInconsistency creates a packing inconsistency BuildError.
func PackingInconsistency(code Code, resource string, sentinel error, format string, args ...any) *BuildError {
	return newBuildError(KindPackingInconsistency, code, resource, sentinel, format, args...)
}

// InternalInvariant creates an internal invariant BuildError.
func InternalInvariant(code Code, resource string, sentinel error, format string, args ...any) *BuildError {
	return newBuildError(KindInternalInvariant, code, resource, sentinel, format, args...)
}

func newBuildError(kind Kind, code Code, resource string, sentinel error, format string, args ...any) *BuildError {
	return &BuildError{
		Kind:     kind,
		Code:     code,
		Resource: resource,
		Message:  fmt.Sprintf(format, args...),
		Err:      sentinel,
	}
}

func (e *BuildError) Error() string {
	var msg strings.Builder
	msg.WriteString(string(e.Kind))
	msg.WriteString(" [")
	msg.WriteString(string(e.Code))
	msg.WriteString("]: ")
	msg.WriteString(e.Message)
	if e.Resource != "" {
		msg.WriteString(" (")
		msg.WriteString(e.Resource)
		msg.WriteString(")")
	}
	return msg.String()
}

// Unwrap returns the package sentinel (when set) and the kind sentinel.
func (e *BuildError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if s := e.Kind.Sentinel(); s != nil {
		errs = append(errs, s)
	}
	return errs
}

// Sentinel returns the sentinel error for the kind, or nil for advisory and unknown kinds.
func (k Kind) Sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindCacheInconsistency:
		return ErrCacheInconsistency
	case KindPackingInconsistency:
		return ErrPackingInconsistency
	case KindInternalInvariant:
		return ErrInternalInvariant
	default:
		return nil
	}
}

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// AsBuildError extracts the first BuildError in err's chain.
func AsBuildError(err error) (*BuildError, bool) {
	var be *BuildError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
