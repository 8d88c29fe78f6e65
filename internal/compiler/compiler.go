// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"errors"
	"slices"

	"github.com/invowk/bundlemap/internal/buildmap"
)

// ErrCompileFailed is returned when an archive cannot be produced.
var ErrCompileFailed = errors.New("archive compilation failed")

type (
	// Compiler turns the ordered bundle grouping into archive files.
	Compiler interface {
		// Name identifies the compiler in reports.
		Name() string
		Compile(ctx context.Context, in Input) (*Result, error)
	}

	// Input is the packing input of one build.
	Input struct {
		Builds []buildmap.Build
		// OutputDir receives one archive per bundle, named after the bundle.
		OutputDir string
	}

	// BundleOutput is the compiler view of one archive.
	BundleOutput struct {
		ContentHash string
		CRC         uint32
		// DependencyBundleNames are the bundles this archive loads at runtime, as
		// derived by the compiler from the content it actually packed.
		DependencyBundleNames []string
		OutputPath            string
	}

	// Result maps bundle names to compiler outputs.
	Result struct {
		Bundles map[string]BundleOutput
	}
)

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{Bundles: make(map[string]BundleOutput)}
}

// BundleNames returns the compiled bundle names, sorted.
func (r *Result) BundleNames() []string {
	names := make([]string, 0, len(r.Bundles))
	for name := range r.Bundles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Bundle returns the output of a bundle.
func (r *Result) Bundle(name string) (BundleOutput, bool) {
	b, ok := r.Bundles[name]
	return b, ok
}
