// SPDX-License-Identifier: MPL-2.0

package rules

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/invowk/bundlemap/internal/asset"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is the gitignore-style file read by GitignoreRule.
const IgnoreFileName = ".bundleignore"

// ignoredExts are sources that are compiled or included, never packed.
var ignoredExts = map[string]bool{
	"":       true,
	".cs":    true,
	".dll":   true,
	".js":    true,
	".boo":   true,
	".meta":  true,
	".cginc": true,
	".hlsl":  true,
}

// ignoredFolders are editor-only folders.
var ignoredFolders = []string{"/Gizmos/", "/Editor/", "/Editor Default Resources/"}

type (
	// NormalIgnoreRule ignores folders, scripts, plugins, editor folders and any path
	// outside the Assets root.
	NormalIgnoreRule struct{}

	// RawFileIgnoreRule ignores folders, sidecars and paths outside the Assets root,
	// keeping every other file as a raw file candidate.
	RawFileIgnoreRule struct{}

	// GitignoreRule applies NormalIgnoreRule, then gitignore-style patterns matched
	// against the asset path.
	GitignoreRule struct {
		patterns *ignore.GitIgnore
	}
)

func outsideRoot(p string) bool {
	return !strings.HasPrefix(p, asset.RootFolder+"/")
}

func (NormalIgnoreRule) IsIgnored(n asset.Node) bool {
	if outsideRoot(n.Path) || n.Kind == asset.KindFolder || n.Kind == asset.KindScript {
		return true
	}
	if ignoredExts[strings.ToLower(path.Ext(n.Path))] {
		return true
	}
	for _, f := range ignoredFolders {
		if strings.Contains(n.Path, f) {
			return true
		}
	}
	return false
}

func (RawFileIgnoreRule) IsIgnored(n asset.Node) bool {
	return outsideRoot(n.Path) || n.Kind == asset.KindFolder || strings.EqualFold(path.Ext(n.Path), ".meta")
}

// NewGitignoreRule compiles gitignore-style patterns.
func NewGitignoreRule(patterns ...string) *GitignoreRule {
	return &GitignoreRule{patterns: ignore.CompileIgnoreLines(patterns...)}
}

// LoadGitignoreRule compiles the patterns of an ignore file. A missing file yields a
// rule equivalent to NormalIgnoreRule.
func LoadGitignoreRule(file string) (*GitignoreRule, error) {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return NewGitignoreRule(), nil
	}
	compiled, err := ignore.CompileIgnoreFile(file)
	if err != nil {
		return nil, fmt.Errorf("compile ignore file %s: %w", file, err)
	}
	return &GitignoreRule{patterns: compiled}, nil
}

func (r *GitignoreRule) IsIgnored(n asset.Node) bool {
	if (NormalIgnoreRule{}).IsIgnored(n) {
		return true
	}
	return r.patterns != nil && r.patterns.MatchesPath(n.Path)
}
