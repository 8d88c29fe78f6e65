// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/invowk/bundlemap/internal/compiler"
)

type (
	// Files are the manifest output files of one package version.
	Files struct {
		JSON    string
		Binary  string
		Hash    string
		Version string
		// PackageHash is the CRC32 of the binary file as written to Hash.
		PackageHash string
	}
)

// JSONFileName returns the debug manifest file name.
func JSONFileName(pkg, version string) string { return pkg + "_" + version + ".json" }

// BinaryFileName returns the binary manifest file name.
func BinaryFileName(pkg, version string) string { return pkg + "_" + version + ".bytes" }

// HashFileName returns the name of the file holding the binary manifest checksum.
func HashFileName(pkg, version string) string { return pkg + "_" + version + ".hash" }

// VersionFileName returns the name of the file holding the current package version.
func VersionFileName(pkg string) string { return pkg + ".version" }

// ReportFileName returns the audit report file name.
func ReportFileName(pkg, version string) string { return pkg + "_" + version + ".report.toml" }

// DiffFileName returns the manifest diff file name.
func DiffFileName(pkg, version string) string { return pkg + "_" + version + ".diff" }

// MarshalJSON renders the human-readable manifest. It is for debugging and is
// never loaded at runtime.
func MarshalJSON(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write writes every manifest file of m into dir. The binary form is passed
// through proc.
func Write(dir string, m *Manifest, proc ProcessService) (Files, error) {
	if proc == nil {
		proc = NoProcess{}
	}
	files := Files{
		JSON:    filepath.Join(dir, JSONFileName(m.PackageName, m.PackageVersion)),
		Binary:  filepath.Join(dir, BinaryFileName(m.PackageName, m.PackageVersion)),
		Hash:    filepath.Join(dir, HashFileName(m.PackageName, m.PackageVersion)),
		Version: filepath.Join(dir, VersionFileName(m.PackageName)),
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create manifest directory: %w", err)
	}

	jsonData, err := MarshalJSON(m)
	if err != nil {
		return Files{}, fmt.Errorf("encode json manifest: %w", err)
	}
	if err := os.WriteFile(files.JSON, jsonData, 0o644); err != nil {
		return Files{}, fmt.Errorf("write json manifest: %w", err)
	}

	bin, err := MarshalBinary(m)
	if err != nil {
		return Files{}, fmt.Errorf("encode binary manifest: %w", err)
	}
	bin, err = proc.Process(bin)
	if err != nil {
		return Files{}, fmt.Errorf("process binary manifest with %s: %w", proc.Name(), err)
	}
	if err := os.WriteFile(files.Binary, bin, 0o644); err != nil {
		return Files{}, fmt.Errorf("write binary manifest: %w", err)
	}

	files.PackageHash = compiler.FormatCRC(crc32.ChecksumIEEE(bin))
	if err := os.WriteFile(files.Hash, []byte(files.PackageHash), 0o644); err != nil {
		return Files{}, fmt.Errorf("write manifest hash: %w", err)
	}
	if err := os.WriteFile(files.Version, []byte(m.PackageVersion), 0o644); err != nil {
		return Files{}, fmt.Errorf("write package version: %w", err)
	}
	return files, nil
}

// ReadBinary loads a binary manifest file written by Write.
func ReadBinary(path string, restore RestoreService) (*Manifest, error) {
	if restore == nil {
		restore = NoProcess{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err = restore.Restore(data)
	if err != nil {
		return nil, err
	}
	return UnmarshalBinary(data)
}
