// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/invowk/bundlemap/internal/compiler"
	"github.com/invowk/bundlemap/internal/issue"
	"github.com/invowk/bundlemap/internal/manifest"
)

const (
	// ModeArchive compiles and publishes bundle files.
	ModeArchive BuildMode = "archive"
	// ModeSimulate resolves and writes the manifest without compiling.
	ModeSimulate BuildMode = "simulate"

	// OutputCacheDirName holds intermediate archives inside the package output root.
	OutputCacheDirName = "OutputCache"
	// DefaultCacheFile is the dependency cache location relative to the project root.
	DefaultCacheFile = ".bundlemap/dependency.cache"

	// MaxBundleNameLength bounds bundle names for filesystem portability.
	MaxBundleNameLength = 260
)

var (
	// ErrInvalidBuildMode is returned for an unknown BuildMode.
	ErrInvalidBuildMode = errors.New("invalid build mode")
	// ErrInvalidParameter is returned when build parameters are incomplete.
	ErrInvalidParameter = errors.New("invalid build parameter")
	// ErrOutputExists is returned when the version directory already exists.
	ErrOutputExists = errors.New("package version already built")
	// ErrBundleNameTooLong is returned for a bundle name at or above MaxBundleNameLength.
	ErrBundleNameTooLong = errors.New("bundle name too long")
)

type (
	// BuildMode selects archive or simulated builds.
	BuildMode string

	// InvalidBuildModeError is returned when a BuildMode is not recognized.
	InvalidBuildModeError struct {
		Value BuildMode
	}

	// Parameters configures one build.
	Parameters struct {
		ProjectRoot    string
		OutputRoot     string
		BuildTarget    string
		PackageName    string
		PackageVersion string
		// PackageNote defaults to the build start time.
		PackageNote   string
		BuildMode     BuildMode
		FileNameStyle manifest.FileNameStyle

		EnableSharePackRule       bool
		SingleReferencedPackAlone bool
		UseDependencyCache        bool
		// CacheFile defaults to DefaultCacheFile under the project root.
		CacheFile       string
		ClearBuildCache bool
		WriteMeta       bool
		ImporterVersion string

		VerifyBuildResult bool
		// BuiltinBundleNames are engine-internal bundles. Nil means the shader and
		// script bundles of the package.
		BuiltinBundleNames           []string
		TrackSpriteAtlasDependencies bool

		Encryption      string
		ManifestProcess string
	}
)

// Error implements error.
func (e *InvalidBuildModeError) Error() string {
	return fmt.Sprintf("invalid build mode %q (valid: archive, simulate)", e.Value)
}

// Unwrap returns ErrInvalidBuildMode.
func (e *InvalidBuildModeError) Unwrap() error { return ErrInvalidBuildMode }

// Validate reports whether m is a known mode.
func (m BuildMode) Validate() error {
	switch m {
	case ModeArchive, ModeSimulate:
		return nil
	default:
		return &InvalidBuildModeError{Value: m}
	}
}

// String returns the mode name.
func (m BuildMode) String() string { return string(m) }

// Validate checks that the parameters describe a buildable package.
func (p Parameters) Validate() error {
	required := []struct{ name, value string }{
		{"project_root", p.ProjectRoot},
		{"output_root", p.OutputRoot},
		{"build_target", p.BuildTarget},
		{"package_name", p.PackageName},
		{"package_version", p.PackageVersion},
	}
	for _, r := range required {
		if r.value == "" {
			return issue.Configuration(issue.CodeInvalidParameter, r.name, ErrInvalidParameter, "%s is required", r.name)
		}
	}
	if err := p.BuildMode.Validate(); err != nil {
		return issue.Configuration(issue.CodeInvalidParameter, "build_mode", err, "%v", err)
	}
	if err := p.FileNameStyle.Validate(); err != nil {
		return issue.Configuration(issue.CodeInvalidParameter, "file_name_style", err, "%v", err)
	}
	if _, err := compiler.NewEncryptionService(p.Encryption); err != nil {
		return issue.Configuration(issue.CodeInvalidParameter, "encryption", err, "%v", err)
	}
	if _, err := manifest.NewService(p.ManifestProcess); err != nil {
		return issue.Configuration(issue.CodeInvalidParameter, "manifest_process", err, "%v", err)
	}
	return nil
}

// PackageRootDir returns {OutputRoot}/{BuildTarget}/{PackageName}.
func (p Parameters) PackageRootDir() string {
	return filepath.Join(p.OutputRoot, p.BuildTarget, p.PackageName)
}

// PackageOutputDir returns the version directory of the build.
func (p Parameters) PackageOutputDir() string {
	return filepath.Join(p.PackageRootDir(), p.PackageVersion)
}

// OutputCacheDir returns the directory of intermediate archives.
func (p Parameters) OutputCacheDir() string {
	return filepath.Join(p.PackageRootDir(), OutputCacheDirName)
}

// CacheFilePath returns the dependency cache file path.
func (p Parameters) CacheFilePath() string {
	if p.CacheFile != "" {
		return p.CacheFile
	}
	return filepath.Join(p.ProjectRoot, filepath.FromSlash(DefaultCacheFile))
}
