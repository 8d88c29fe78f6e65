// SPDX-License-Identifier: MPL-2.0

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invowk/bundlemap/internal/manifest"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns the unified diff of two texts, or "" when they are equal.
func Diff(oldName string, oldData []byte, newName string, newData []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldData)),
		B:        difflib.SplitLines(string(newData)),
		FromFile: oldName,
		ToFile:   newName,
		Context:  3,
	})
}

// DiffFiles returns the unified diff of two files.
func DiffFiles(oldPath, newPath string) (string, error) {
	oldData, err := os.ReadFile(oldPath)
	if err != nil {
		return "", err
	}
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return "", err
	}
	return Diff(oldPath, oldData, newPath, newData)
}

// PreviousManifest finds the debug manifest of the most recent other version under
// the package output root. Version directories are compared by the modification
// time of their manifest, then by name. It returns "" when there is none.
func PreviousManifest(packageRoot, pkg, currentVersion string) (string, error) {
	entries, err := os.ReadDir(packageRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("list package versions: %w", err)
	}

	type candidate struct {
		path    string
		version string
		mod     int64
	}
	var found []candidate
	for _, e := range entries {
		if !e.IsDir() || e.Name() == currentVersion {
			continue
		}
		p := filepath.Join(packageRoot, e.Name(), manifest.JSONFileName(pkg, e.Name()))
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		found = append(found, candidate{path: p, version: e.Name(), mod: info.ModTime().UnixNano()})
	}
	if len(found) == 0 {
		return "", nil
	}
	latest := slices.MaxFunc(found, func(a, b candidate) int {
		if a.mod != b.mod {
			if a.mod < b.mod {
				return -1
			}
			return 1
		}
		return strings.Compare(a.version, b.version)
	})
	return latest.path, nil
}
