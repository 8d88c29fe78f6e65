// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/invowk/bundlemap/internal/assetdb"
	"github.com/invowk/bundlemap/internal/buildmap"
	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/compiler"
	"github.com/invowk/bundlemap/internal/depcache"
	"github.com/invowk/bundlemap/internal/issue"
	"github.com/invowk/bundlemap/internal/manifest"
	"github.com/invowk/bundlemap/internal/report"
	"github.com/invowk/bundlemap/internal/rules"
)

// simulatePipelineName is the manifest build pipeline of simulated builds.
const simulatePipelineName = "simulate"

func taskPrepare(_ context.Context, bc *Context) error {
	p := &bc.Params
	if p.PackageNote == "" {
		p.PackageNote = bc.Started.Format(time.DateTime)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	// Validate has already accepted both names.
	bc.encryption, _ = compiler.NewEncryptionService(p.Encryption)
	bc.process, _ = manifest.NewService(p.ManifestProcess)

	dir := p.PackageOutputDir()
	switch _, err := os.Stat(dir); {
	case err == nil && bc.simulate():
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove previous simulated output: %w", err)
		}
	case err == nil:
		return issue.Configuration(issue.CodeOutputExists, dir, ErrOutputExists,
			"version %s of %s already exists", p.PackageVersion, p.PackageName)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("check output directory: %w", err)
	}

	if p.ClearBuildCache {
		if err := os.RemoveAll(p.OutputCacheDir()); err != nil {
			return fmt.Errorf("clear build cache: %w", err)
		}
		bc.Logger.Info("build cache cleared", "path", p.OutputCacheDir())
	}
	return nil
}

func taskLoad(ctx context.Context, bc *Context) error {
	p := bc.Params
	db, err := assetdb.Open(ctx, p.ProjectRoot, assetdb.Options{
		Platform:         p.BuildTarget,
		ImporterVersion:  p.ImporterVersion,
		WriteMissingMeta: p.WriteMeta,
		Logger:           bc.Logger,
		Diagnostics:      bc.Diagnostics,
	})
	if err != nil {
		return err
	}
	bc.DB = db

	cache, err := depcache.Open(ctx, db, depcache.Options{
		Path:        p.CacheFilePath(),
		UseCache:    p.UseDependencyCache && !p.ClearBuildCache,
		Logger:      bc.Logger,
		Diagnostics: bc.Diagnostics,
	})
	if err != nil {
		return err
	}
	bc.Cache = cache

	if bc.Package.IgnoreRuleOrDefault() == rules.GitignoreRuleName {
		rule, err := rules.LoadGitignoreRule(filepath.Join(p.ProjectRoot, rules.IgnoreFileName))
		if err != nil {
			return issue.Configuration(issue.CodeUnknownRule, rules.IgnoreFileName, err, "load ignore file: %v", err)
		}
		bc.Rules.SetIgnore(rules.GitignoreRuleName, rule)
	}
	return nil
}

func taskBuildMap(ctx context.Context, bc *Context) error {
	p := bc.Params
	engine := collect.NewEngine(bc.DB, bc.Cache, bc.Rules, bc.Logger)
	res, err := engine.Collect(ctx, bc.Package, collect.Options{
		UniqueBundleName:   bc.UniqueBundleName,
		UseDependencyCache: p.UseDependencyCache,
		Simulate:           bc.simulate(),
	})
	if err != nil {
		return err
	}
	bc.Collection = res

	graph, err := buildmap.NewResolver(bc.DB, buildmap.Options{
		EnableSharePackRule:       p.EnableSharePackRule,
		SingleReferencedPackAlone: p.SingleReferencedPackAlone,
		PreShare:                  bc.PreShare,
		PostShare:                 bc.PostShare,
		Logger:                    bc.Logger,
		Diagnostics:               bc.Diagnostics,
	}).Resolve(ctx, res)
	if err != nil {
		return err
	}
	bc.Graph = graph
	return nil
}

func taskCompile(ctx context.Context, bc *Context) error {
	p := bc.Params
	agg := bc.Graph.Aggregator
	if bc.Compiler == nil {
		bc.Compiler = compiler.NewZipCompiler(compiler.ZipOptions{
			Source:            os.DirFS(p.ProjectRoot),
			Deps:              bc.Cache,
			MonoScriptsBundle: bc.Collection.Command.MonoScriptsBundleName(),
			Logger:            bc.Logger,
		})
	}
	res, err := bc.Compiler.Compile(ctx, compiler.Input{Builds: agg.Grouping(), OutputDir: p.OutputCacheDir()})
	if err != nil {
		return err
	}
	bc.Compiled = res

	builtin := bc.builtinBundles()
	for _, name := range res.BundleNames() {
		if !agg.Has(name) && slices.Contains(builtin, name) {
			agg.CreateEmptyBundle(name)
		}
	}
	for _, b := range agg.Bundles() {
		if out, ok := res.Bundle(b.Name); ok {
			b.File.ContentHash = out.ContentHash
			b.File.ContentCRC = out.CRC
			b.File.OutputPath = out.OutputPath
		}
	}
	bc.Logger.Info("bundles compiled", "compiler", bc.Compiler.Name(), "bundles", len(res.Bundles))
	return nil
}

func taskVerify(_ context.Context, bc *Context) error {
	if !bc.Params.VerifyBuildResult {
		return nil
	}
	var planned []string
	for _, b := range bc.Graph.Aggregator.Grouping() {
		planned = append(planned, b.BundleName)
	}
	return compiler.Verify(planned, bc.Compiled, bc.builtinBundles(), bc.Diagnostics)
}

func taskEncrypt(_ context.Context, bc *Context) error {
	dir := filepath.Join(bc.Params.OutputCacheDir(), "encrypted")
	count := 0
	for _, b := range bc.Graph.Aggregator.Bundles() {
		b.File.SourcePath = b.File.OutputPath
		if b.File.OutputPath == "" {
			continue
		}
		res, err := bc.encryption.Encrypt(compiler.EncryptFileInfo{BundleName: b.Name, FilePath: b.File.OutputPath})
		if err != nil {
			return err
		}
		if !res.Encrypted {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create encryption output: %w", err)
		}
		path := filepath.Join(dir, b.Name)
		if err := os.WriteFile(path, res.Data, 0o644); err != nil {
			return fmt.Errorf("write encrypted %s: %w", b.Name, err)
		}
		b.File.EncryptedPath = path
		b.File.SourcePath = path
		b.File.Encrypted = true
		count++
	}
	if count > 0 {
		bc.Logger.Info("bundles encrypted", "service", bc.encryption.Name(), "count", count)
	}
	return nil
}

func taskUpdateBundleInfo(_ context.Context, bc *Context) error {
	p := bc.Params
	versionDir := p.PackageOutputDir()
	for _, b := range bc.Graph.Aggregator.Bundles() {
		if len(b.Name) >= MaxBundleNameLength {
			return issue.Configuration(issue.CodeBundleNameTooLong, b.Name, ErrBundleNameTooLong,
				"bundle name has %d characters, the limit is %d", len(b.Name), MaxBundleNameLength-1)
		}

		var meta compiler.FileMeta
		if bc.simulate() {
			meta = compiler.SimulateMeta(b.Name)
		} else {
			if b.File.SourcePath == "" {
				b.File.SourcePath = b.File.OutputPath
			}
			var err error
			if meta, err = compiler.ReadFileMeta(b.File.SourcePath); err != nil {
				return issue.PackingInconsistency(issue.CodeCompileFailed, b.Name, compiler.ErrCompileFailed,
					"bundle file unreadable: %v", err)
			}
		}
		b.File.FileHash = meta.MD5
		b.File.FileCRC = meta.CRC32
		b.File.FileSize = meta.Size
		b.File.DestPath = filepath.Join(versionDir, p.FileNameStyle.FileName(b.Name, meta.MD5))
	}
	return nil
}

func taskManifest(_ context.Context, bc *Context) error {
	p := bc.Params
	agg := bc.Graph.Aggregator
	builtin := slices.Clone(bc.builtinBundles())
	if p.TrackSpriteAtlasDependencies {
		for _, it := range agg.SpriteAtlases() {
			builtin = append(builtin, it.BundleName())
		}
	}
	in := manifest.Input{
		Command: bc.Collection.Command,
		Header: manifest.Header{
			PackageName:    p.PackageName,
			PackageVersion: p.PackageVersion,
			PackageNote:    p.PackageNote,
			FileNameStyle:  p.FileNameStyle,
			BuildPipeline:  bc.pipelineName(),
		},
		Aggregator:     agg,
		BuiltinBundles: builtin,
	}
	if !bc.simulate() {
		in.BundleDepends = manifest.BundleDependsFromResult(bc.Compiled)
	}
	m, err := manifest.NewResolver(bc.Logger, bc.Diagnostics).Resolve(in)
	if err != nil {
		return err
	}

	files, err := manifest.Write(p.PackageOutputDir(), m, bc.process)
	if err != nil {
		return err
	}
	bc.Files = files
	restored, err := manifest.ReadBinary(files.Binary, bc.process)
	if err != nil {
		return fmt.Errorf("read back binary manifest: %w", err)
	}
	bc.Manifest = restored
	bc.Logger.Info("manifest written", "path", files.Binary, "hash", files.PackageHash)
	return nil
}

func (bc *Context) pipelineName() string {
	if bc.simulate() || bc.Compiler == nil {
		return simulatePipelineName
	}
	return bc.Compiler.Name()
}

func taskCopy(_ context.Context, bc *Context) error {
	for _, b := range bc.Graph.Aggregator.Bundles() {
		if b.File.SourcePath == "" {
			continue
		}
		if err := copyFile(b.File.SourcePath, b.File.DestPath); err != nil {
			return fmt.Errorf("publish %s: %w", b.Name, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func taskReport(_ context.Context, bc *Context) error {
	p := bc.Params
	cmd := bc.Collection.Command
	summary := report.Summary{
		ToolVersion:    bc.ToolVersion,
		BuildDate:      bc.Started,
		BuildSeconds:   bc.Now().Sub(bc.Started).Seconds(),
		BuildTarget:    p.BuildTarget,
		BuildMode:      p.BuildMode.String(),
		PackageName:    p.PackageName,
		PackageVersion: p.PackageVersion,
		PackageNote:    p.PackageNote,
		Command: report.CommandInfo{
			UniqueBundleName:     cmd.UniqueBundleName,
			EnableAddressable:    cmd.EnableAddressable,
			SupportExtensionless: cmd.SupportExtensionless,
			LocationToLower:      cmd.LocationToLower,
			IncludeAssetGUID:     cmd.IncludeAssetGUID,
			AutoCollectShaders:   cmd.AutoCollectShaders,
			IgnoreRuleName:       cmd.IgnoreRuleName,
		},
		Parameters: report.ParamsInfo{
			FileNameStyle:             p.FileNameStyle.String(),
			EnableSharePackRule:       p.EnableSharePackRule,
			SingleReferencedPackAlone: p.SingleReferencedPackAlone,
			UseDependencyCache:        p.UseDependencyCache,
			VerifyBuildResult:         p.VerifyBuildResult,
		},
		Services: report.ServicesInfo{
			Compiler:        bc.pipelineName(),
			Encryption:      bc.encryption.Name(),
			ManifestProcess: bc.process.Name(),
		},
	}
	r, err := report.Build(report.Input{Summary: summary, Manifest: bc.Manifest, Graph: bc.Graph, Diagnostics: bc.Diagnostics})
	if err != nil {
		return err
	}
	bc.Report = r
	bc.ReportPath = filepath.Join(p.PackageOutputDir(), manifest.ReportFileName(p.PackageName, p.PackageVersion))
	if err := report.Write(bc.ReportPath, r); err != nil {
		return err
	}

	prev, err := report.PreviousManifest(p.PackageRootDir(), p.PackageName, p.PackageVersion)
	if err != nil || prev == "" {
		return err
	}
	diff, err := report.DiffFiles(prev, bc.Files.JSON)
	if err != nil {
		return fmt.Errorf("diff manifest: %w", err)
	}
	if diff == "" {
		bc.Logger.Info("manifest unchanged since previous version", "previous", prev)
		return nil
	}
	bc.DiffPath = filepath.Join(p.PackageOutputDir(), manifest.DiffFileName(p.PackageName, p.PackageVersion))
	if err := os.WriteFile(bc.DiffPath, []byte(diff), 0o644); err != nil {
		return fmt.Errorf("write manifest diff: %w", err)
	}
	return nil
}

func taskSaveCache(_ context.Context, bc *Context) error {
	if !bc.Params.UseDependencyCache {
		return nil
	}
	if err := bc.Cache.Save(); err != nil {
		return fmt.Errorf("save dependency cache: %w", err)
	}
	bc.Logger.Debug("dependency cache saved", "path", bc.Cache.Path(), "entries", bc.Cache.Len())
	return nil
}
