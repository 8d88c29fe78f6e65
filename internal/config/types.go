// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/invowk/bundlemap/internal/collect"
	"github.com/invowk/bundlemap/internal/compiler"
	"github.com/invowk/bundlemap/internal/manifest"
	"github.com/invowk/bundlemap/internal/pipeline"
	"github.com/invowk/bundlemap/internal/rules"
)

const (
	// DefaultPackageName is used when the file names no package.
	DefaultPackageName = "DefaultPackage"
	// DefaultBuildTarget is the platform written into fingerprints and output paths.
	DefaultBuildTarget = "standalone"
	// DefaultOutputRoot is relative to the project root.
	DefaultOutputRoot = "Bundles"
)

// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the decoded project file.
	Config struct {
		ProjectRoot string          `json:"project_root" mapstructure:"project_root"`
		Build       BuildConfig     `json:"build" mapstructure:"build"`
		Collector   CollectorConfig `json:"collector" mapstructure:"collector"`
	}

	// BuildConfig holds the build parameters of the file. Package name and
	// version-independent fields come from CollectorConfig.
	BuildConfig struct {
		OutputRoot     string                 `json:"output_root" mapstructure:"output_root"`
		BuildTarget    string                 `json:"build_target" mapstructure:"build_target"`
		PackageVersion string                 `json:"package_version" mapstructure:"package_version"`
		PackageNote    string                 `json:"package_note" mapstructure:"package_note"`
		BuildMode      pipeline.BuildMode     `json:"build_mode" mapstructure:"build_mode"`
		FileNameStyle  manifest.FileNameStyle `json:"file_name_style" mapstructure:"file_name_style"`

		EnableSharePackRule       bool   `json:"enable_share_pack_rule" mapstructure:"enable_share_pack_rule"`
		SingleReferencedPackAlone bool   `json:"single_referenced_pack_alone" mapstructure:"single_referenced_pack_alone"`
		UseDependencyCache        bool   `json:"use_dependency_cache" mapstructure:"use_dependency_cache"`
		CacheFile                 string `json:"cache_file" mapstructure:"cache_file"`
		ClearBuildCache           bool   `json:"clear_build_cache" mapstructure:"clear_build_cache"`
		WriteMeta                 bool   `json:"write_meta" mapstructure:"write_meta"`
		ImporterVersion           string `json:"importer_version" mapstructure:"importer_version"`

		VerifyBuildResult            bool     `json:"verify_build_result" mapstructure:"verify_build_result"`
		BuiltinBundleNames           []string `json:"builtin_bundle_names" mapstructure:"builtin_bundle_names"`
		TrackSpriteAtlasDependencies bool     `json:"track_sprite_atlas_dependencies" mapstructure:"track_sprite_atlas_dependencies"`

		Encryption      string `json:"encryption" mapstructure:"encryption"`
		ManifestProcess string `json:"manifest_process" mapstructure:"manifest_process"`
	}

	// CollectorConfig holds the command options and the collection tree.
	CollectorConfig struct {
		UniqueBundleName bool            `json:"unique_bundle_name" mapstructure:"unique_bundle_name"`
		Package          collect.Package `json:"package" mapstructure:"package"`
	}

	// InvalidConfigError reports the first invalid field of a decoded Config.
	// It wraps ErrInvalidConfig and the field's own error.
	InvalidConfigError struct {
		Field string
		Err   error
	}
)

// Error implements error.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

// Unwrap returns ErrInvalidConfig and the field error.
func (e *InvalidConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }

// DefaultConfig returns the configuration used when no project file exists.
func DefaultConfig() *Config {
	return &Config{
		ProjectRoot: ".",
		Build: BuildConfig{
			OutputRoot:          DefaultOutputRoot,
			BuildTarget:         DefaultBuildTarget,
			BuildMode:           pipeline.ModeArchive,
			FileNameStyle:       manifest.StyleHashName,
			EnableSharePackRule: true,
			UseDependencyCache:  true,
			CacheFile:           pipeline.DefaultCacheFile,
			VerifyBuildResult:   true,
			Encryption:          compiler.EncryptionNone,
			ManifestProcess:     manifest.ProcessNone,
		},
		Collector: CollectorConfig{
			Package: collect.Package{Name: DefaultPackageName},
		},
	}
}

// SampleConfig is DefaultConfig with one group packing every folder under Assets/ by
// directory. `bundlemap config init` writes it.
func SampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Collector.Package.Groups = []collect.Group{{
		Name:   "Default",
		Active: true,
		Collectors: []collect.Collector{{
			CollectPath:  "Assets",
			Kind:         collect.KindMain,
			PackRuleName: rules.PackDirectoryName,
		}},
	}}
	return cfg
}

// Validate checks the typed values CUE cannot check alone, such as values that came
// from environment overrides.
func (c *Config) Validate() error {
	if err := c.Build.BuildMode.Validate(); err != nil {
		return &InvalidConfigError{Field: "build.build_mode", Err: err}
	}
	if err := c.Build.FileNameStyle.Validate(); err != nil {
		return &InvalidConfigError{Field: "build.file_name_style", Err: err}
	}
	if _, err := compiler.NewEncryptionService(c.Build.Encryption); err != nil {
		return &InvalidConfigError{Field: "build.encryption", Err: err}
	}
	if _, err := manifest.NewService(c.Build.ManifestProcess); err != nil {
		return &InvalidConfigError{Field: "build.manifest_process", Err: err}
	}
	for gi, g := range c.Collector.Package.Groups {
		for ci, cc := range g.Collectors {
			if cc.Kind == "" {
				continue
			}
			if err := cc.Kind.Validate(); err != nil {
				return &InvalidConfigError{
					Field: fmt.Sprintf("collector.package.groups[%d].collectors[%d].kind", gi, ci),
					Err:   err,
				}
			}
		}
	}
	return nil
}

// Parameters maps the build section onto pipeline parameters. Relative paths are
// resolved against the project root.
func (c *Config) Parameters() pipeline.Parameters {
	b := c.Build
	return pipeline.Parameters{
		ProjectRoot:                  c.ProjectRoot,
		OutputRoot:                   c.underRoot(b.OutputRoot),
		BuildTarget:                  b.BuildTarget,
		PackageName:                  c.Collector.Package.Name,
		PackageVersion:               b.PackageVersion,
		PackageNote:                  b.PackageNote,
		BuildMode:                    b.BuildMode,
		FileNameStyle:                b.FileNameStyle,
		EnableSharePackRule:          b.EnableSharePackRule,
		SingleReferencedPackAlone:    b.SingleReferencedPackAlone,
		UseDependencyCache:           b.UseDependencyCache,
		CacheFile:                    c.underRoot(b.CacheFile),
		ClearBuildCache:              b.ClearBuildCache,
		WriteMeta:                    b.WriteMeta,
		ImporterVersion:              b.ImporterVersion,
		VerifyBuildResult:            b.VerifyBuildResult,
		BuiltinBundleNames:           b.BuiltinBundleNames,
		TrackSpriteAtlasDependencies: b.TrackSpriteAtlasDependencies,
		Encryption:                   b.Encryption,
		ManifestProcess:              b.ManifestProcess,
	}
}

func (c *Config) underRoot(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectRoot, filepath.FromSlash(p))
}
