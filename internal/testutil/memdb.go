// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/invowk/bundlemap/internal/asset"
)

var _ asset.Database = (*MemDB)(nil)

type (
	// MemDB is an in-memory asset.Database. References are stored by identifier,
	// so Rename keeps every edge pointing at the moved asset.
	MemDB struct {
		mu      sync.Mutex
		nodes   map[string]*memNode
		byGUID  map[asset.GUID]string
		queries map[string]int
		next    int
	}

	memNode struct {
		guid        asset.GUID
		kind        asset.Kind
		fingerprint string
		refs        []string
		size        int64
	}
)

// NewMemDB creates an empty database.
func NewMemDB() *MemDB {
	return &MemDB{
		nodes:   make(map[string]*memNode),
		byGUID:  make(map[asset.GUID]string),
		queries: make(map[string]int),
	}
}

// Add registers a file asset referencing deps (paths, resolved lazily) and returns its
// identifier. Missing parent folders are registered too.
func (m *MemDB) Add(assetPath string, deps ...string) asset.GUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFolders(asset.Dir(assetPath))
	return m.add(assetPath, asset.KindFromPath(assetPath), deps)
}

// AddKind registers a file asset with an explicit kind.
func (m *MemDB) AddKind(assetPath string, kind asset.Kind, deps ...string) asset.GUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFolders(asset.Dir(assetPath))
	return m.add(assetPath, kind, deps)
}

// AddFolder registers a folder and its missing parents.
func (m *MemDB) AddFolder(folder string) asset.GUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFolders(folder)
	return m.nodes[folder].guid
}

func (m *MemDB) addFolders(folder string) {
	if folder == "" || folder == asset.RootFolder {
		return
	}
	if _, ok := m.nodes[folder]; ok {
		return
	}
	m.addFolders(asset.Dir(folder))
	m.add(folder, asset.KindFolder, nil)
}

func (m *MemDB) add(assetPath string, kind asset.Kind, deps []string) asset.GUID {
	if old, ok := m.nodes[assetPath]; ok {
		delete(m.byGUID, old.guid)
	}
	m.next++
	guid := asset.GUID(fmt.Sprintf("%032x", m.next))
	refs := make([]string, len(deps))
	for i, d := range deps {
		refs[i] = string(guidPlaceholder(d))
	}
	m.nodes[assetPath] = &memNode{
		guid:        guid,
		kind:        kind,
		fingerprint: "fp-" + string(guid),
		refs:        refs,
		size:        int64(len(assetPath)),
	}
	m.byGUID[guid] = assetPath
	return guid
}

// guidPlaceholder marks a reference recorded by path. It is swapped for the target's
// identifier the first time the target exists, after which renames are tracked.
func guidPlaceholder(p string) string { return "path:" + p }

func (m *MemDB) resolveRefs(n *memNode) {
	for i, r := range n.refs {
		if p, ok := strings.CutPrefix(r, "path:"); ok {
			if target, exists := m.nodes[p]; exists {
				n.refs[i] = string(target.guid)
			}
		}
	}
}

// Touch changes the fingerprint of an asset, as an edit to its content would.
func (m *MemDB) Touch(assetPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[assetPath]; ok {
		n.fingerprint += "+"
	}
}

// SetDeps replaces the references of an asset and changes its fingerprint.
func (m *MemDB) SetDeps(assetPath string, deps ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[assetPath]
	if !ok {
		return
	}
	n.refs = n.refs[:0]
	for _, d := range deps {
		n.refs = append(n.refs, guidPlaceholder(d))
	}
	n.fingerprint += "+"
}

// SetSize sets the reported file size of an asset.
func (m *MemDB) SetSize(assetPath string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[assetPath]; ok {
		n.size = size
	}
}

// Rename moves an asset to a new path, keeping its identifier and fingerprint.
func (m *MemDB) Rename(oldPath, newPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.nodes {
		m.resolveRefs(n)
	}
	n, ok := m.nodes[oldPath]
	if !ok {
		return
	}
	delete(m.nodes, oldPath)
	m.addFolders(asset.Dir(newPath))
	m.nodes[newPath] = n
	m.byGUID[n.guid] = newPath
}

// Remove deletes an asset. References to it stop resolving.
func (m *MemDB) Remove(assetPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.nodes {
		m.resolveRefs(n)
	}
	if n, ok := m.nodes[assetPath]; ok {
		delete(m.byGUID, n.guid)
		delete(m.nodes, assetPath)
	}
}

// DependencyQueries returns how many times DirectDependencies ran for assetPath.
func (m *MemDB) DependencyQueries(assetPath string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[assetPath]
}

// AllPaths implements asset.Database.
func (m *MemDB) AllPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.nodes))
	for p := range m.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// GUIDForPath implements asset.Database.
func (m *MemDB) GUIDForPath(assetPath string) (asset.GUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[assetPath]
	if !ok {
		return "", false
	}
	return n.guid, true
}

// PathForGUID implements asset.Database.
func (m *MemDB) PathForGUID(guid asset.GUID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byGUID[guid]
	return p, ok
}

// IsFolder implements asset.Database.
func (m *MemDB) IsFolder(assetPath string) bool {
	if assetPath == asset.RootFolder {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[assetPath]
	return ok && n.kind == asset.KindFolder
}

// KindOf implements asset.Database.
func (m *MemDB) KindOf(assetPath string) asset.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[assetPath]; ok {
		return n.kind
	}
	return asset.KindFromPath(assetPath)
}

// Fingerprint implements asset.Database.
func (m *MemDB) Fingerprint(assetPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[assetPath]
	if !ok {
		return "", fmt.Errorf("fingerprint: asset not found: %s", assetPath)
	}
	return n.fingerprint, nil
}

// DirectDependencies implements asset.Database.
func (m *MemDB) DirectDependencies(assetPath string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[assetPath]
	if !ok {
		return nil, fmt.Errorf("dependencies: asset not found: %s", assetPath)
	}
	m.queries[assetPath]++
	m.resolveRefs(n)
	deps := make([]string, 0, len(n.refs))
	for _, r := range n.refs {
		if p, found := m.byGUID[asset.GUID(r)]; found {
			deps = append(deps, p)
		}
	}
	return deps, nil
}

// FileSize implements asset.Database.
func (m *MemDB) FileSize(assetPath string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[assetPath]; ok && n.kind != asset.KindFolder {
		return n.size
	}
	return 0
}

// MustMkdirAll creates dir and its parents, failing the test on error.
func MustMkdirAll(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
}

// MustWriteFile writes data to name, creating parent directories, failing the test on error.
func MustWriteFile(t testing.TB, name string, data []byte) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(name))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}
