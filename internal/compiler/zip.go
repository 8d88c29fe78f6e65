// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/issue"

	"github.com/klauspost/compress/zip"
)

// ZipCompilerName is the name of the reference compiler.
const ZipCompilerName = "zip"

// zipEpoch is the modification time of every archive entry. Zip cannot encode
// times before 1980.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

var _ Compiler = (*ZipCompiler)(nil)

type (
	// DependencyResolver answers recursive dependency queries. *depcache.Cache
	// implements it.
	DependencyResolver interface {
		Resolve(assetPath string, recursive bool) ([]string, error)
	}

	// ZipOptions configures a ZipCompiler.
	ZipOptions struct {
		// Source reads asset content by asset path (os.DirFS of the project root).
		Source fs.FS
		// Deps resolves the dependencies an archive must inline or reference.
		Deps DependencyResolver
		// MonoScriptsBundle receives every referenced script. Empty disables the
		// script bundle and scripts are dropped.
		MonoScriptsBundle string
		Logger            *slog.Logger
	}

	// ZipCompiler writes one deterministic zip archive per bundle. Dependencies that
	// are not packed into any bundle are inlined into each archive that needs them.
	ZipCompiler struct {
		opts ZipOptions
	}

	archive struct {
		name    string
		entries []string
		deps    []string
	}
)

// NewZipCompiler creates the reference compiler.
func NewZipCompiler(opts ZipOptions) *ZipCompiler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &ZipCompiler{opts: opts}
}

// Name implements Compiler.
func (z *ZipCompiler) Name() string { return ZipCompilerName }

// Compile implements Compiler.
func (z *ZipCompiler) Compile(ctx context.Context, in Input) (*Result, error) {
	owner := make(map[string]string)
	for _, b := range in.Builds {
		for _, p := range b.AssetPaths {
			owner[p] = b.BundleName
		}
	}

	archives, err := z.plan(in, owner)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(in.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create compiler output: %w", err)
	}

	res := NewResult()
	for _, a := range archives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := z.write(in.OutputDir, a)
		if err != nil {
			return nil, err
		}
		res.Bundles[a.name] = out
		z.opts.Logger.Debug("archive written", "bundle", a.name, "entries", len(a.entries), "deps", len(a.deps))
	}
	return res, nil
}

func (z *ZipCompiler) plan(in Input, owner map[string]string) ([]*archive, error) {
	archives := make([]*archive, 0, len(in.Builds)+1)
	var scripts []string
	for _, b := range in.Builds {
		a := &archive{name: b.BundleName, entries: slices.Clone(b.AssetPaths)}
		var inlined []string
		for _, p := range b.AssetPaths {
			if z.opts.Deps == nil {
				break
			}
			deps, err := z.opts.Deps.Resolve(p, true)
			if err != nil {
				return nil, err
			}
			for _, d := range deps {
				switch {
				case asset.KindFromPath(d) == asset.KindScript:
					if z.opts.MonoScriptsBundle == "" {
						continue
					}
					if !slices.Contains(scripts, d) {
						scripts = append(scripts, d)
					}
					a.addDep(z.opts.MonoScriptsBundle)
				case owner[d] == "":
					if !slices.Contains(inlined, d) && !slices.Contains(a.entries, d) {
						inlined = append(inlined, d)
					}
				case owner[d] != b.BundleName:
					a.addDep(owner[d])
				}
			}
		}
		slices.Sort(inlined)
		a.entries = append(a.entries, inlined...)
		slices.Sort(a.deps)
		archives = append(archives, a)
	}
	if len(scripts) > 0 {
		slices.Sort(scripts)
		archives = append(archives, &archive{name: z.opts.MonoScriptsBundle, entries: scripts})
	}
	return archives, nil
}

func (a *archive) addDep(name string) {
	if name != a.name && !slices.Contains(a.deps, name) {
		a.deps = append(a.deps, name)
	}
}

func (z *ZipCompiler) write(dir string, a *archive) (BundleOutput, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range a.entries {
		data, err := fs.ReadFile(z.opts.Source, p)
		if err != nil {
			return BundleOutput{}, issue.PackingInconsistency(issue.CodeCompileFailed, a.name, ErrCompileFailed,
				"read %s: %v", p, err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p, Method: zip.Deflate, Modified: zipEpoch})
		if err != nil {
			return BundleOutput{}, fmt.Errorf("add %s to %s: %w", p, a.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return BundleOutput{}, fmt.Errorf("add %s to %s: %w", p, a.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return BundleOutput{}, fmt.Errorf("close archive %s: %w", a.name, err)
	}

	outPath := filepath.Join(dir, a.name)
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return BundleOutput{}, fmt.Errorf("write archive %s: %w", a.name, err)
	}
	sum := md5.Sum(buf.Bytes())
	return BundleOutput{
		ContentHash:           hex.EncodeToString(sum[:]),
		CRC:                   crc32.ChecksumIEEE(buf.Bytes()),
		DependencyBundleNames: a.deps,
		OutputPath:            outPath,
	}, nil
}
