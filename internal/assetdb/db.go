// SPDX-License-Identifier: MPL-2.0

package assetdb

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/invowk/bundlemap/internal/asset"
	"github.com/invowk/bundlemap/internal/issue"

	"golang.org/x/sync/errgroup"
)

var _ asset.Database = (*DB)(nil)

// ErrNoAssetsFolder is returned when the project root has no Assets/ folder.
var ErrNoAssetsFolder = errors.New("project has no Assets folder")

// guidRef matches serialized object references ({fileID: 1, guid: <hex>, type: 2}).
var guidRef = regexp.MustCompile(`guid:\s*([0-9a-fA-F]{32})`)

// textExts are the serialized asset formats scanned for guid references.
var textExts = map[string]bool{
	".mat": true, ".prefab": true, ".unity": true, ".asset": true,
	".controller": true, ".overridecontroller": true, ".anim": true, ".mask": true,
	".spriteatlas": true, ".spriteatlasv2": true, ".shadervariants": true,
	".playable": true, ".mixer": true, ".lighting": true, ".rendertexture": true,
	".physicmaterial": true, ".fontsettings": true, ".guiskin": true, ".cubemap": true,
}

type (
	// Options configures a database scan.
	Options struct {
		// Platform is the build target mixed into every fingerprint.
		Platform string
		// ImporterVersion is mixed into every fingerprint; bump it to invalidate all
		// cached dependency edges.
		ImporterVersion string
		// WriteMissingMeta writes a sidecar for every asset that lacks one.
		WriteMissingMeta bool
		// Concurrency bounds parallel fingerprinting. Zero means runtime.NumCPU().
		Concurrency int
		Logger      *slog.Logger
		Diagnostics *issue.Diagnostics
	}

	// DB is a scanned, read-only snapshot of a project's assets.
	DB struct {
		root    string
		records map[string]*record
		byGUID  map[asset.GUID]string
		paths   []string
	}

	record struct {
		node        asset.Node
		size        int64
		fingerprint string
		refs        []asset.GUID
	}
)

// Open scans projectRoot/Assets and returns the resulting database.
func Open(ctx context.Context, projectRoot string, opts Options) (*DB, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	assetsDir := filepath.Join(absRoot, asset.RootFolder)
	if info, statErr := os.Stat(assetsDir); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoAssetsFolder, absRoot)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db := &DB{
		root:    absRoot,
		records: make(map[string]*record),
		byGUID:  make(map[asset.GUID]string),
	}

	var recs []*record
	walkErr := filepath.WalkDir(assetsDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == assetsDir {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || (d.IsDir() && strings.HasSuffix(name, "~")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(name, MetaExt) {
			return nil
		}
		rel, relErr := filepath.Rel(absRoot, p)
		if relErr != nil {
			return relErr
		}
		r := &record{node: asset.Node{Path: filepath.ToSlash(rel)}}
		if d.IsDir() {
			r.node.Kind = asset.KindFolder
		} else {
			r.node.Kind = asset.KindFromPath(r.node.Path)
		}
		recs = append(recs, r)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan assets: %w", walkErr)
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	metas := make([]*Meta, len(recs))
	metaData := make([][]byte, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, r := range recs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			m, data, readErr := readMeta(db.abs(r.node.Path) + MetaExt)
			if readErr != nil {
				return readErr
			}
			metas[i], metaData[i] = m, data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Sidecars that are not written back get path-derived identifiers, so repeated
	// scans of the same tree agree.
	mint := PathGUID
	if opts.WriteMissingMeta {
		mint = func(string) asset.GUID { return NewGUID() }
	}

	// Identifier assignment is sequential so duplicate handling is deterministic.
	for i, r := range recs {
		m := metas[i]
		needsWrite := false
		switch {
		case m == nil:
			m = &Meta{GUID: mint(r.node.Path)}
			needsWrite = true
		case m.GUID.Validate() != nil:
			opts.Diagnostics.Warn(issue.CodeDuplicateGUID, r.node.Path, "invalid guid %q in meta file, minting a new one", m.GUID)
			m.GUID = mint(r.node.Path)
			needsWrite = true
		default:
			if owner, dup := db.byGUID[m.GUID]; dup {
				opts.Diagnostics.Warn(issue.CodeDuplicateGUID, r.node.Path, "guid %s already used by %s, minting a new one", m.GUID, owner)
				m.GUID = mint(r.node.Path)
				needsWrite = true
			}
		}
		if needsWrite {
			data, encErr := encodeMeta(m)
			if encErr != nil {
				return nil, encErr
			}
			metaData[i] = data
			if opts.WriteMissingMeta {
				if wErr := writeMeta(db.abs(r.node.Path)+MetaExt, data); wErr != nil {
					return nil, wErr
				}
				logger.Debug("wrote meta file", "path", r.node.Path, "guid", m.GUID)
			}
		}
		r.node.GUID = m.GUID
		db.byGUID[m.GUID] = r.node.Path
		db.records[r.node.Path] = r
		db.paths = append(db.paths, r.node.Path)
	}
	sort.Strings(db.paths)

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, r := range recs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return db.fingerprint(r, metaData[i], opts)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("asset database scanned", "root", absRoot, "assets", len(db.paths))
	return db, nil
}

// fingerprint hashes content, sidecar, platform and importer version, and extracts
// guid references from text assets.
func (db *DB) fingerprint(r *record, meta []byte, opts Options) error {
	h := sha256.New()
	if r.node.Kind != asset.KindFolder {
		content, err := os.ReadFile(db.abs(r.node.Path))
		if err != nil {
			return fmt.Errorf("read asset %s: %w", r.node.Path, err)
		}
		r.size = int64(len(content))
		h.Write(content)
		if isTextAsset(r.node.Path, content) {
			r.refs = extractRefs(content, r.node.GUID)
		}
	}
	h.Write([]byte{0})
	h.Write(meta)
	h.Write([]byte{0})
	h.Write([]byte(opts.Platform))
	h.Write([]byte{0})
	h.Write([]byte(opts.ImporterVersion))
	r.fingerprint = hex.EncodeToString(h.Sum(nil))
	return nil
}

func isTextAsset(assetPath string, content []byte) bool {
	return textExts[strings.ToLower(path.Ext(assetPath))] || bytes.HasPrefix(content, []byte("%YAML"))
}

// extractRefs returns the distinct guids referenced by content, in order of first
// appearance, excluding self.
func extractRefs(content []byte, self asset.GUID) []asset.GUID {
	matches := guidRef.FindAllSubmatch(content, -1)
	seen := make(map[asset.GUID]bool, len(matches))
	var refs []asset.GUID
	for _, m := range matches {
		g := asset.GUID(strings.ToLower(string(m[1])))
		if g == self || seen[g] {
			continue
		}
		seen[g] = true
		refs = append(refs, g)
	}
	return refs
}

func (db *DB) abs(assetPath string) string {
	return filepath.Join(db.root, filepath.FromSlash(assetPath))
}

// Root returns the absolute project root.
func (db *DB) Root() string { return db.root }

// AbsPath returns the absolute filesystem path of an asset path.
func (db *DB) AbsPath(assetPath string) string { return db.abs(assetPath) }

// AllPaths returns every asset path, folders included, sorted.
func (db *DB) AllPaths() []string {
	out := make([]string, len(db.paths))
	copy(out, db.paths)
	return out
}

// GUIDForPath returns the identifier of an existing asset.
func (db *DB) GUIDForPath(assetPath string) (asset.GUID, bool) {
	r, ok := db.records[assetPath]
	if !ok {
		return "", false
	}
	return r.node.GUID, true
}

// PathForGUID returns the current path of an identifier.
func (db *DB) PathForGUID(guid asset.GUID) (string, bool) {
	p, ok := db.byGUID[guid]
	return p, ok
}

// IsFolder reports whether assetPath is an existing folder. The Assets root itself is a folder.
func (db *DB) IsFolder(assetPath string) bool {
	if assetPath == asset.RootFolder {
		return true
	}
	r, ok := db.records[assetPath]
	return ok && r.node.Kind == asset.KindFolder
}

// KindOf returns the kind of an existing asset, or KindGeneric.
func (db *DB) KindOf(assetPath string) asset.Kind {
	if r, ok := db.records[assetPath]; ok {
		return r.node.Kind
	}
	if assetPath == asset.RootFolder {
		return asset.KindFolder
	}
	return asset.KindFromPath(assetPath)
}

// Fingerprint returns the dependency fingerprint of an asset.
func (db *DB) Fingerprint(assetPath string) (string, error) {
	r, ok := db.records[assetPath]
	if !ok {
		return "", fmt.Errorf("fingerprint: asset not found: %s", assetPath)
	}
	return r.fingerprint, nil
}

// DirectDependencies returns the current paths of the assets referenced by assetPath.
// References that no longer resolve are dropped.
func (db *DB) DirectDependencies(assetPath string) ([]string, error) {
	r, ok := db.records[assetPath]
	if !ok {
		return nil, fmt.Errorf("dependencies: asset not found: %s", assetPath)
	}
	deps := make([]string, 0, len(r.refs))
	for _, g := range r.refs {
		if p, found := db.byGUID[g]; found {
			deps = append(deps, p)
		}
	}
	return deps, nil
}

// FileSize returns the size of an asset file (0 for folders and unknown paths).
func (db *DB) FileSize(assetPath string) int64 {
	if r, ok := db.records[assetPath]; ok {
		return r.size
	}
	return 0
}
