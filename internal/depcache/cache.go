// SPDX-License-Identifier: MPL-2.0

package depcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/issue"
)

// ErrUnknownAsset is returned when a path was never registered by the current scan.
var ErrUnknownAsset = errors.New("asset not registered in dependency cache")

type (
	// Options configures Open.
	Options struct {
		// Path is the cache file. Empty keeps the cache in memory only.
		Path string
		// UseCache loads Path before scanning. When false the cache is rebuilt from
		// the database, and Save still writes the result.
		UseCache bool
		Logger   *slog.Logger
		// Diagnostics receives missing-dependency warnings (optional).
		Diagnostics *issue.Diagnostics
	}

	// Stats summarizes how the last scan used the cache file.
	Stats struct {
		// Loaded is the number of entries read from the cache file.
		Loaded int `json:"loaded" toml:"loaded"`
		// Dropped is the number of loaded entries whose path no longer exists.
		Dropped int `json:"dropped" toml:"dropped"`
		// Reused is the number of entries kept because their fingerprint matched.
		Reused int `json:"reused" toml:"reused"`
		// Recomputed is the number of entries queried from the database.
		Recomputed int `json:"recomputed" toml:"recomputed"`
		// Discarded reports that the cache file was unreadable and was deleted.
		Discarded bool `json:"discarded" toml:"discarded"`
	}

	// Cache is the dependency cache of one scan.
	Cache struct {
		db      asset.Database
		path    string
		entries map[string]*entry
		logger  *slog.Logger
		diags   *issue.Diagnostics
		stats   Stats
	}

	entry struct {
		fingerprint string
		deps        []asset.GUID
	}
)

// Open loads the cache file (when opts.UseCache is set) and brings every entry up to
// date with db. Entries for paths that no longer exist are dropped, entries whose
// fingerprint still matches are reused, and all others are recomputed through
// db.DirectDependencies.
//
// A cache file that cannot be read, or carries another format version, is deleted and
// the cache is rebuilt from scratch.
func Open(ctx context.Context, db asset.Database, opts Options) (*Cache, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	diags := opts.Diagnostics
	if diags == nil {
		diags = issue.NewDiagnostics(logger)
	}
	c := &Cache{
		db:      db,
		path:    opts.Path,
		entries: make(map[string]*entry),
		logger:  logger,
		diags:   diags,
	}

	if opts.UseCache && c.path != "" {
		if err := c.load(); err != nil {
			logger.Warn("discarding dependency cache", "path", c.path, "error", err)
			c.stats.Discarded = true
			if clearErr := c.Clear(true); clearErr != nil {
				return nil, clearErr
			}
		}
	}

	for i, p := range db.AllPaths() {
		if i%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fp, err := db.Fingerprint(p)
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", p, err)
		}
		if cached, ok := c.entries[p]; ok && cached.fingerprint == fp {
			c.stats.Reused++
			continue
		}
		e, err := c.compute(p, fp)
		if err != nil {
			return nil, err
		}
		c.entries[p] = e
		c.stats.Recomputed++
	}

	logger.Debug("dependency cache ready",
		"entries", len(c.entries),
		"reused", c.stats.Reused,
		"recomputed", c.stats.Recomputed,
		"dropped", c.stats.Dropped)
	return c, nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read dependency cache: %w", err)
	}
	entries, err := decodeEntries(bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.stats.Loaded = len(entries)
	for p := range entries {
		if _, ok := c.db.GUIDForPath(p); !ok {
			delete(entries, p)
			c.stats.Dropped++
		}
	}
	c.entries = entries
	return nil
}

// compute queries the direct dependencies of p and stores them by identifier.
func (c *Cache) compute(p, fingerprint string) (*entry, error) {
	paths, err := c.db.DirectDependencies(p)
	if err != nil {
		return nil, fmt.Errorf("query dependencies of %s: %w", p, err)
	}
	e := &entry{fingerprint: fingerprint, deps: make([]asset.GUID, 0, len(paths))}
	for _, dp := range paths {
		if g, ok := c.db.GUIDForPath(dp); ok {
			e.deps = append(e.deps, g)
		}
	}
	return e, nil
}

// Resolve returns the dependencies of assetPath as current paths. With recursive set
// the whole reachable set is returned in depth-first discovery order; otherwise only
// direct dependencies. Folders and the asset itself are never part of the result.
//
// Identifiers that no longer resolve to a path are skipped. A dependency that exists
// in the database but has no cache entry, like an unregistered assetPath, fails with
// a cache inconsistency wrapping ErrUnknownAsset.
func (c *Cache) Resolve(assetPath string, recursive bool) ([]string, error) {
	if _, ok := c.entries[assetPath]; !ok {
		return nil, issue.CacheInconsistency(issue.CodeUnknownAsset, assetPath, ErrUnknownAsset,
			"asset has no dependency cache entry")
	}
	visited := map[string]bool{assetPath: true}
	var result []string
	if err := c.collect(assetPath, assetPath, recursive, visited, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Cache) collect(parent, assetPath string, recursive bool, visited map[string]bool, result *[]string) error {
	e, ok := c.entries[assetPath]
	if !ok {
		if _, exists := c.db.GUIDForPath(assetPath); !exists {
			c.diags.Warn(issue.CodeMissingDependency, parent, "%s found missing asset: %s", parent, assetPath)
			return nil
		}
		return issue.CacheInconsistency(issue.CodeUnknownAsset, assetPath, ErrUnknownAsset,
			"dependency of %s has no dependency cache entry", parent)
	}
	for _, g := range e.deps {
		dep, found := c.db.PathForGUID(g)
		if !found {
			c.diags.Warn(issue.CodeMissingDependency, assetPath, "%s references missing asset %s", assetPath, g)
			continue
		}
		if c.db.IsFolder(dep) || visited[dep] {
			continue
		}
		visited[dep] = true
		*result = append(*result, dep)
		if recursive {
			if err := c.collect(assetPath, dep, recursive, visited, result); err != nil {
				return err
			}
		}
	}
	return nil
}

// Has reports whether assetPath has a cache entry.
func (c *Cache) Has(assetPath string) bool {
	_, ok := c.entries[assetPath]
	return ok
}

// Len returns the number of cache entries.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns the scan statistics.
func (c *Cache) Stats() Stats { return c.stats }

// Path returns the cache file path.
func (c *Cache) Path() string { return c.path }

// Save writes every entry to the cache file, sorted by path. It is a no-op for an
// in-memory cache.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	if err := encodeEntries(&buf, paths, c.entries); err != nil {
		return fmt.Errorf("encode dependency cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write dependency cache: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename dependency cache: %w", err)
	}
	c.logger.Debug("dependency cache saved", "path", c.path, "entries", len(paths))
	return nil
}

// Clear empties the cache and, when deleteFile is set, removes the cache file.
func (c *Cache) Clear(deleteFile bool) error {
	c.entries = make(map[string]*entry)
	if deleteFile {
		return RemoveFile(c.path)
	}
	return nil
}

// RemoveFile deletes a cache file. A missing file is not an error.
func RemoveFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove dependency cache: %w", err)
	}
	return nil
}

// FileStats describes a cache file on disk without scanning a project.
type FileStats struct {
	Path    string
	Version string
	Entries int
	Edges   int
	Size    int64
}

// Inspect reads a cache file and summarizes it.
func Inspect(path string) (FileStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("read dependency cache: %w", err)
	}
	entries, err := decodeEntries(bytes.NewReader(data))
	if err != nil {
		return FileStats{}, err
	}
	st := FileStats{Path: path, Version: FormatVersion, Entries: len(entries), Size: int64(len(data))}
	for _, e := range entries {
		st.Edges += len(e.deps)
	}
	return st, nil
}
