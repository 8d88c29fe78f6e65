// SPDX-License-Identifier: MPL-2.0

package depcache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/invowk/bundlemap/internal/asset"
)

// FormatVersion is the cache file format version. A file with any other version is
// discarded and the cache is rebuilt.
const FormatVersion = "1.0"

// ErrVersionMismatch is returned when a cache file carries a different format version.
var ErrVersionMismatch = errors.New("dependency cache format version mismatch")

// ErrTrailingData is returned when a cache file has bytes after its last entry.
var ErrTrailingData = errors.New("dependency cache has trailing data")

// maxStringLen bounds string lengths read from a cache file.
const maxStringLen = 1 << 20

// The file layout is:
//
//	version  string
//	count    int32 (little endian)
//	count x { path string, fingerprint string, guids int32 + string... }
//
// Strings are a uvarint byte length followed by UTF-8 bytes.

func encodeEntries(w io.Writer, paths []string, entries map[string]*entry) error {
	bw := bufio.NewWriter(w)
	writeString(bw, FormatVersion)
	writeInt32(bw, len(paths))
	for _, p := range paths {
		e := entries[p]
		writeString(bw, p)
		writeString(bw, e.fingerprint)
		writeInt32(bw, len(e.deps))
		for _, g := range e.deps {
			writeString(bw, string(g))
		}
	}
	return bw.Flush()
}

func writeString(w *bufio.Writer, s string) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(s)))
	_, _ = w.Write(buf[:n])
	_, _ = w.WriteString(s)
}

func writeInt32(w *bufio.Writer, v int) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(v)))
	_, _ = w.Write(buf[:])
}

func decodeEntries(r io.Reader) (map[string]*entry, error) {
	br := bufio.NewReader(r)
	version, err := readString(br)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrVersionMismatch, version, FormatVersion)
	}
	count, err := readInt32(br)
	if err != nil {
		return nil, fmt.Errorf("read entry count: %w", err)
	}
	entries := make(map[string]*entry, min(count, 1<<16))
	for i := range count {
		p, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("read entry %d path: %w", i, err)
		}
		fp, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("read entry %s fingerprint: %w", p, err)
		}
		n, err := readInt32(br)
		if err != nil {
			return nil, fmt.Errorf("read entry %s dependency count: %w", p, err)
		}
		deps := make([]asset.GUID, 0, min(n, 1<<10))
		for range n {
			g, err := readString(br)
			if err != nil {
				return nil, fmt.Errorf("read entry %s dependency: %w", p, err)
			}
			deps = append(deps, asset.GUID(g))
		}
		entries[p] = &entry{fingerprint: fp, deps: deps}
	}
	if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("read end of file: %w", err)
		}
		return nil, ErrTrailingData
	}
	return entries, nil
}

func readString(r *bufio.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readInt32(r *bufio.Reader) (int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(buf[:]))
	if v < 0 {
		return 0, fmt.Errorf("negative count %d", v)
	}
	return int(v), nil
}
