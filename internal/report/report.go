// SPDX-License-Identifier: MPL-2.0

package report

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/invowk/bundlemap/internal/buildmap"
	"github.com/invowk/bundlemap/internal/dag"
	"github.com/invowk/bundlemap/internal/issue"
	"github.com/invowk/bundlemap/internal/manifest"

	"github.com/pelletier/go-toml/v2"
)

type (
	// Report is the audit record of one build.
	Report struct {
		Summary           Summary                     `toml:"summary"`
		BundleOrder       []string                    `toml:"bundle_order"`
		Assets            []AssetRecord               `toml:"assets"`
		Bundles           []BundleRecord              `toml:"bundles"`
		IndependentAssets []buildmap.IndependentAsset `toml:"independent_assets"`
		Diagnostics       []issue.Diagnostic          `toml:"diagnostics"`
	}

	// Summary describes the build as a whole.
	Summary struct {
		ToolVersion    string       `toml:"tool_version"`
		BuildDate      time.Time    `toml:"build_date"`
		BuildSeconds   float64      `toml:"build_seconds"`
		BuildTarget    string       `toml:"build_target"`
		BuildMode      string       `toml:"build_mode"`
		PackageName    string       `toml:"package_name"`
		PackageVersion string       `toml:"package_version"`
		PackageNote    string       `toml:"package_note"`
		Command        CommandInfo  `toml:"command"`
		Parameters     ParamsInfo   `toml:"parameters"`
		Services       ServicesInfo `toml:"services"`

		AssetFileCount       int   `toml:"asset_file_count"`
		MainAssetCount       int   `toml:"main_asset_count"`
		AllBundleCount       int   `toml:"all_bundle_count"`
		AllBundleSize        int64 `toml:"all_bundle_size"`
		EncryptedBundleCount int   `toml:"encrypted_bundle_count"`
		EncryptedBundleSize  int64 `toml:"encrypted_bundle_size"`
	}

	// CommandInfo records the collection options.
	CommandInfo struct {
		UniqueBundleName     bool   `toml:"unique_bundle_name"`
		EnableAddressable    bool   `toml:"enable_addressable"`
		SupportExtensionless bool   `toml:"support_extensionless"`
		LocationToLower      bool   `toml:"location_to_lower"`
		IncludeAssetGUID     bool   `toml:"include_asset_guid"`
		AutoCollectShaders   bool   `toml:"auto_collect_shaders"`
		IgnoreRuleName       string `toml:"ignore_rule_name"`
	}

	// ParamsInfo records the build parameters that shape the output.
	ParamsInfo struct {
		FileNameStyle             string `toml:"file_name_style"`
		EnableSharePackRule       bool   `toml:"enable_share_pack_rule"`
		SingleReferencedPackAlone bool   `toml:"single_referenced_pack_alone"`
		UseDependencyCache        bool   `toml:"use_dependency_cache"`
		VerifyBuildResult         bool   `toml:"verify_build_result"`
	}

	// ServicesInfo names the collaborators used by the build.
	ServicesInfo struct {
		Compiler        string `toml:"compiler"`
		Encryption      string `toml:"encryption"`
		ManifestProcess string `toml:"manifest_process"`
	}

	// AssetRecord describes one manifest asset.
	AssetRecord struct {
		Address        string   `toml:"address"`
		AssetPath      string   `toml:"asset_path"`
		AssetGUID      string   `toml:"asset_guid"`
		AssetTags      []string `toml:"asset_tags"`
		MainBundleName string   `toml:"main_bundle_name"`
		MainBundleSize int64    `toml:"main_bundle_size"`
		DependAssets   []string `toml:"depend_assets"`
		DependBundles  []string `toml:"depend_bundles"`
	}

	// BundleRecord describes one published bundle.
	BundleRecord struct {
		BundleName       string   `toml:"bundle_name"`
		FileName         string   `toml:"file_name"`
		FileHash         string   `toml:"file_hash"`
		FileCRC          string   `toml:"file_crc"`
		FileSize         int64    `toml:"file_size"`
		Encrypted        bool     `toml:"encrypted"`
		Tags             []string `toml:"tags"`
		DependBundles    []string `toml:"depend_bundles"`
		ReferenceBundles []string `toml:"reference_bundles"`
		Contents         []string `toml:"contents"`
	}

	// Input is everything a report is built from.
	Input struct {
		Summary     Summary
		Manifest    *manifest.Manifest
		Graph       *buildmap.Result
		Diagnostics *issue.Diagnostics
	}
)

// Build assembles the report. Summary counters are derived from the manifest and
// the graph; the other summary fields are taken from in.Summary. A bundle cycle
// is recorded as an advisory diagnostic.
func Build(in Input) (*Report, error) {
	m := in.Manifest
	r := &Report{Summary: in.Summary}
	r.Summary.AssetFileCount = in.Graph.AssetFileCount
	r.Summary.MainAssetCount = len(m.AssetList)
	r.Summary.AllBundleCount = len(m.BundleList)

	order, err := dag.FromDependencies(m).TopologicalSort()
	var cycle *dag.CycleError
	switch {
	case errors.As(err, &cycle):
		in.Diagnostics.Warn(issue.CodeBundleCycle, "", "%s", cycle.Error())
	case err != nil:
		return nil, err
	}
	r.BundleOrder = order

	for _, a := range m.AssetList {
		rec := AssetRecord{
			Address:       a.Address,
			AssetPath:     a.AssetPath,
			AssetGUID:     a.AssetGUID,
			AssetTags:     a.AssetTags,
			DependBundles: m.NamesOf(a.DependBundleIDs),
		}
		if a.BundleID >= 0 && a.BundleID < len(m.BundleList) {
			b := m.BundleList[a.BundleID]
			rec.MainBundleName = b.BundleName
			rec.MainBundleSize = b.FileSize
			if bundle, err := in.Graph.Aggregator.Bundle(b.BundleName); err == nil {
				if it, ok := bundle.Item(a.AssetPath); ok {
					rec.AssetGUID = it.Node.GUID.String()
					for _, dep := range it.Dependencies() {
						rec.DependAssets = append(rec.DependAssets, dep.Path())
					}
				}
			}
		}
		r.Assets = append(r.Assets, rec)
	}

	for _, b := range m.BundleList {
		rec := BundleRecord{
			BundleName:       b.BundleName,
			FileName:         m.OutputNameStyle.FileName(b.BundleName, b.FileHash),
			FileHash:         b.FileHash,
			FileCRC:          b.FileCRC,
			FileSize:         b.FileSize,
			Encrypted:        b.Encrypted,
			Tags:             b.Tags,
			DependBundles:    m.NamesOf(b.DependBundleIDs),
			ReferenceBundles: m.NamesOf(b.ReferenceBundleIDs),
		}
		if contents, err := in.Graph.Aggregator.Contents(b.BundleName); err == nil {
			for _, it := range contents {
				rec.Contents = append(rec.Contents, it.Path())
			}
		}
		r.Summary.AllBundleSize += b.FileSize
		if b.Encrypted {
			r.Summary.EncryptedBundleCount++
			r.Summary.EncryptedBundleSize += b.FileSize
		}
		r.Bundles = append(r.Bundles, rec)
	}

	r.IndependentAssets = in.Graph.IndependentAssets
	r.Diagnostics = in.Diagnostics.All()
	return r, nil
}

// Write encodes the report as TOML into path.
func Write(path string, r *Report) error {
	data, err := toml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Read decodes a report file.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &r, nil
}
