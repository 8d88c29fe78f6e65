// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// FileMeta is the published identity of a file.
type FileMeta struct {
	MD5   string
	CRC32 uint32
	Size  int64
}

// CRCString formats the checksum the way the manifest hash file stores it.
func (m FileMeta) CRCString() string { return FormatCRC(m.CRC32) }

// FormatCRC formats a CRC32 as eight lower-case hex digits.
func FormatCRC(crc uint32) string { return fmt.Sprintf("%08x", crc) }

// ReadFileMeta computes MD5, CRC32 and size of a file in a single pass.
func ReadFileMeta(path string) (FileMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileMeta{}, err
	}
	defer f.Close()

	h := md5.New()
	c := crc32.NewIEEE()
	n, err := io.Copy(io.MultiWriter(h, c), f)
	if err != nil {
		return FileMeta{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return FileMeta{MD5: hex.EncodeToString(h.Sum(nil)), CRC32: c.Sum32(), Size: n}, nil
}

// BytesMeta computes the file metadata of in-memory content.
func BytesMeta(data []byte) FileMeta {
	sum := md5.Sum(data)
	return FileMeta{MD5: hex.EncodeToString(sum[:]), CRC32: crc32.ChecksumIEEE(data), Size: int64(len(data))}
}

// SimulateMeta is the metadata of a bundle that is planned but never written: the
// hash is derived from the name so every bundle stays distinct.
func SimulateMeta(bundleName string) FileMeta {
	sum := md5.Sum([]byte(bundleName))
	return FileMeta{MD5: hex.EncodeToString(sum[:])}
}
