// SPDX-License-Identifier: MPL-2.0

package depcache

import (
	"bytes"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/invowk/bundlemap/internal/asset"
)

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	entries := map[string]*entry{
		"Assets/a.prefab": {fingerprint: "f1", deps: []asset.GUID{"00000000000000000000000000000002"}},
		"Assets/b.mat":    {fingerprint: "f2"},
	}
	var buf bytes.Buffer
	if err := encodeEntries(&buf, []string{"Assets/a.prefab", "Assets/b.mat"}, entries); err != nil {
		t.Fatalf("encodeEntries() error: %v", err)
	}

	// version "1.0": one length byte and three bytes.
	if got := buf.Bytes()[:4]; !bytes.Equal(got, []byte{3, '1', '.', '0'}) {
		t.Errorf("header = %v", got)
	}

	got, err := decodeEntries(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decodeEntries() error: %v", err)
	}
	if len(got) != 2 || got["Assets/a.prefab"].fingerprint != "f1" || len(got["Assets/a.prefab"].deps) != 1 {
		t.Errorf("decodeEntries() = %+v", got)
	}
}

func TestDecodeVersionMismatch(t *testing.T) {
	t.Parallel()

	_, err := decodeEntries(bytes.NewReader([]byte{3, '2', '.', '0', 0, 0, 0, 0}))
	if !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("decodeEntries() error = %v, want ErrVersionMismatch", err)
	}
}

func TestDecodeTrailingData(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	entries := map[string]*entry{"Assets/a.prefab": {fingerprint: "f1"}}
	if err := encodeEntries(&buf, []string{"Assets/a.prefab"}, entries); err != nil {
		t.Fatal(err)
	}
	valid := slices.Clone(buf.Bytes())
	buf.Write(valid)

	_, err := decodeEntries(bytes.NewReader(buf.Bytes()))
	if !errors.Is(err, ErrTrailingData) {
		t.Errorf("decodeEntries(concatenated) error = %v, want ErrTrailingData", err)
	}
	if _, err := decodeEntries(bytes.NewReader(valid)); err != nil {
		t.Errorf("decodeEntries(valid) error: %v", err)
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()

	cacheFile := filepath.Join(t.TempDir(), "deps.db")
	c := mustOpen(t, chainDB(), Options{Path: cacheFile})
	if err := c.Save(); err != nil {
		t.Fatal(err)
	}
	st, err := Inspect(cacheFile)
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}
	if st.Entries != c.Len() || st.Version != FormatVersion {
		t.Errorf("Inspect() = %+v, want %d entries", st, c.Len())
	}
	// a->b, b->c, b->Art
	if st.Edges != 3 {
		t.Errorf("Inspect().Edges = %d, want 3", st.Edges)
	}
}
