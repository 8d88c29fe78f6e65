// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invowk/bundlemap/internal/cueutil"
	"github.com/invowk/bundlemap/internal/issue"

	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"
)

const (
	// AppName is the application name.
	AppName = "bundlemap"
	// FileName is the project file looked up in the project directory.
	FileName = "bundlemap.cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "BUNDLEMAP"
)

//go:embed config_schema.cue
var configSchema []byte

// Schema returns the embedded CUE schema.
func Schema() string { return string(configSchema) }

// LoadOptions selects the project file.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific file when set.
	ConfigFilePath string
	// ProjectDir is searched for FileName when ConfigFilePath is empty. Defaults to
	// the working directory.
	ProjectDir string
	// Env resolves environment variables for overrides and path expansion.
	// Defaults to os.Getenv.
	Env func(string) string
}

// Load reads the project file, returning the decoded configuration and the path it was
// read from. A missing file in ProjectDir is not an error: the defaults apply with
// ProjectDir as the project root.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}
	if opts.Env == nil {
		opts.Env = os.Getenv
	}
	if opts.ProjectDir == "" {
		opts.ProjectDir = "."
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	bindEnv(v, opts.Env)

	resolvedPath, err := findConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Compare the file with 'bundlemap config show --schema'").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	base := opts.ProjectDir
	if resolvedPath != "" {
		base = filepath.Dir(resolvedPath)
	}
	if err := expandPaths(&cfg, base, opts.Env); err != nil {
		return nil, "", err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the BUNDLEMAP_* environment variables").
			Wrap(err).
			BuildError()
	}
	return &cfg, resolvedPath, nil
}

func findConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'bundlemap config init' to create a project file").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}
	p := filepath.Join(opts.ProjectDir, FileName)
	if fileExists(p) {
		return p, nil
	}
	return "", nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("project_root", d.ProjectRoot)
	v.SetDefault("build.output_root", d.Build.OutputRoot)
	v.SetDefault("build.build_target", d.Build.BuildTarget)
	v.SetDefault("build.package_version", d.Build.PackageVersion)
	v.SetDefault("build.package_note", d.Build.PackageNote)
	v.SetDefault("build.build_mode", string(d.Build.BuildMode))
	v.SetDefault("build.file_name_style", string(d.Build.FileNameStyle))
	v.SetDefault("build.enable_share_pack_rule", d.Build.EnableSharePackRule)
	v.SetDefault("build.single_referenced_pack_alone", d.Build.SingleReferencedPackAlone)
	v.SetDefault("build.use_dependency_cache", d.Build.UseDependencyCache)
	v.SetDefault("build.cache_file", d.Build.CacheFile)
	v.SetDefault("build.clear_build_cache", d.Build.ClearBuildCache)
	v.SetDefault("build.write_meta", d.Build.WriteMeta)
	v.SetDefault("build.importer_version", d.Build.ImporterVersion)
	v.SetDefault("build.verify_build_result", d.Build.VerifyBuildResult)
	v.SetDefault("build.track_sprite_atlas_dependencies", d.Build.TrackSpriteAtlasDependencies)
	v.SetDefault("build.encryption", d.Build.Encryption)
	v.SetDefault("build.manifest_process", d.Build.ManifestProcess)
	v.SetDefault("collector.unique_bundle_name", d.Collector.UniqueBundleName)
	v.SetDefault("collector.package.name", d.Collector.Package.Name)
}

// bindEnv binds every scalar key to its BUNDLEMAP_* variable. The lookup goes through
// env so tests need not touch the process environment.
func bindEnv(v *viper.Viper, env func(string) string) {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range v.AllKeys() {
		name := EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if value := env(name); value != "" {
			v.Set(key, value)
		}
	}
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v. Fields
// are optional, so the document need not be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}
	// Explicit overrides set by bindEnv take precedence over the merged map.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// expandPaths expands shell parameters in path values and makes the project root
// absolute relative to base.
func expandPaths(cfg *Config, base string, env func(string) string) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"project_root", &cfg.ProjectRoot},
		{"build.output_root", &cfg.Build.OutputRoot},
		{"build.cache_file", &cfg.Build.CacheFile},
	}
	for _, f := range fields {
		expanded, err := shell.Expand(*f.value, env)
		if err != nil {
			return issue.Configuration(issue.CodeInvalidParameter, f.name, ErrInvalidConfig,
				"expand %s %q: %v", f.name, *f.value, err)
		}
		*f.value = expanded
	}
	if !filepath.IsAbs(cfg.ProjectRoot) {
		cfg.ProjectRoot = filepath.Join(base, cfg.ProjectRoot)
	}
	abs, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	cfg.ProjectRoot = abs
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the sample project file to path. It refuses to overwrite an
// existing file.
func WriteDefault(path string) error {
	if fileExists(path) {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(SampleConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a project file.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bundlemap project file\n\n")
	fmt.Fprintf(&sb, "project_root: %q\n", cfg.ProjectRoot)

	b := cfg.Build
	sb.WriteString("\nbuild: {\n")
	fmt.Fprintf(&sb, "\toutput_root:     %q\n", b.OutputRoot)
	fmt.Fprintf(&sb, "\tbuild_target:    %q\n", b.BuildTarget)
	if b.PackageVersion != "" {
		fmt.Fprintf(&sb, "\tpackage_version: %q\n", b.PackageVersion)
	}
	if b.PackageNote != "" {
		fmt.Fprintf(&sb, "\tpackage_note:    %q\n", b.PackageNote)
	}
	fmt.Fprintf(&sb, "\tbuild_mode:      %q\n", b.BuildMode)
	fmt.Fprintf(&sb, "\tfile_name_style: %q\n", b.FileNameStyle)
	fmt.Fprintf(&sb, "\tenable_share_pack_rule:       %v\n", b.EnableSharePackRule)
	fmt.Fprintf(&sb, "\tsingle_referenced_pack_alone: %v\n", b.SingleReferencedPackAlone)
	fmt.Fprintf(&sb, "\tuse_dependency_cache:         %v\n", b.UseDependencyCache)
	fmt.Fprintf(&sb, "\tcache_file:                   %q\n", b.CacheFile)
	fmt.Fprintf(&sb, "\tclear_build_cache:            %v\n", b.ClearBuildCache)
	fmt.Fprintf(&sb, "\twrite_meta:                   %v\n", b.WriteMeta)
	fmt.Fprintf(&sb, "\tverify_build_result:          %v\n", b.VerifyBuildResult)
	if len(b.BuiltinBundleNames) > 0 {
		sb.WriteString("\tbuiltin_bundle_names: [")
		for i, name := range b.BuiltinBundleNames {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q", name)
		}
		sb.WriteString("]\n")
	}
	fmt.Fprintf(&sb, "\ttrack_sprite_atlas_dependencies: %v\n", b.TrackSpriteAtlasDependencies)
	fmt.Fprintf(&sb, "\tencryption:       %q\n", b.Encryption)
	fmt.Fprintf(&sb, "\tmanifest_process: %q\n", b.ManifestProcess)
	sb.WriteString("}\n")

	c := cfg.Collector
	p := c.Package
	sb.WriteString("\ncollector: {\n")
	fmt.Fprintf(&sb, "\tunique_bundle_name: %v\n", c.UniqueBundleName)
	sb.WriteString("\tpackage: {\n")
	fmt.Fprintf(&sb, "\t\tname:                  %q\n", p.Name)
	fmt.Fprintf(&sb, "\t\tenable_addressable:    %v\n", p.EnableAddressable)
	fmt.Fprintf(&sb, "\t\tsupport_extensionless: %v\n", p.SupportExtensionless)
	fmt.Fprintf(&sb, "\t\tlocation_to_lower:     %v\n", p.LocationToLower)
	fmt.Fprintf(&sb, "\t\tinclude_asset_guid:    %v\n", p.IncludeAssetGUID)
	fmt.Fprintf(&sb, "\t\tauto_collect_shaders:  %v\n", p.AutoCollectShaders)
	if p.IgnoreRuleName != "" {
		fmt.Fprintf(&sb, "\t\tignore_rule:           %q\n", p.IgnoreRuleName)
	}
	sb.WriteString("\t\tgroups: [\n")
	for _, g := range p.Groups {
		sb.WriteString("\t\t\t{\n")
		fmt.Fprintf(&sb, "\t\t\t\tname:   %q\n", g.Name)
		if g.Tags != "" {
			fmt.Fprintf(&sb, "\t\t\t\ttags:   %q\n", g.Tags)
		}
		fmt.Fprintf(&sb, "\t\t\t\tactive: %v\n", g.Active)
		sb.WriteString("\t\t\t\tcollectors: [\n")
		for _, cc := range g.Collectors {
			writeCollector(&sb, cc)
		}
		sb.WriteString("\t\t\t\t]\n")
		sb.WriteString("\t\t\t},\n")
	}
	sb.WriteString("\t\t]\n")
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")

	return sb.String()
}
