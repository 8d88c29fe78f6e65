// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Magic opens every binary manifest.
const Magic uint32 = 0x594F4F

var (
	// ErrBadMagic is returned when binary data is not a manifest.
	ErrBadMagic = errors.New("not a binary manifest")
	// ErrUnsupportedVersion is returned for a manifest of another format version.
	ErrUnsupportedVersion = errors.New("unsupported manifest file version")
	// ErrCorrupt is returned when decoded indices or counts are out of range.
	ErrCorrupt = errors.New("corrupt binary manifest")

	order = binary.LittleEndian
)

type (
	encoder struct {
		w   *bytes.Buffer
		err error
	}

	decoder struct {
		r   *bufio.Reader
		err error
	}
)

// MarshalBinary encodes the manifest in its binary form.
func MarshalBinary(m *Manifest) ([]byte, error) {
	e := &encoder{w: &bytes.Buffer{}}
	e.u32(Magic)
	e.str(m.FileVersion)
	e.boolean(m.EnableAddressable)
	e.boolean(m.SupportExtensionless)
	e.boolean(m.LocationToLower)
	e.boolean(m.IncludeAssetGUID)
	e.str(string(m.OutputNameStyle))
	e.str(m.BuildPipeline)
	e.str(m.PackageName)
	e.str(m.PackageVersion)
	e.str(m.PackageNote)

	e.count(len(m.AssetList))
	for _, a := range m.AssetList {
		e.str(a.Address)
		e.str(a.AssetPath)
		e.str(a.AssetGUID)
		e.strs(a.AssetTags)
		e.i32(a.BundleID)
		e.ints(a.DependBundleIDs)
	}

	e.count(len(m.BundleList))
	for _, b := range m.BundleList {
		e.str(b.BundleName)
		e.u32(b.UnityCRC)
		e.str(b.FileHash)
		e.str(b.FileCRC)
		e.i64(b.FileSize)
		e.boolean(b.Encrypted)
		e.strs(b.Tags)
		e.ints(b.DependBundleIDs)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.w.Bytes(), nil
}

// UnmarshalBinary decodes a binary manifest and rebuilds derived references.
func UnmarshalBinary(data []byte) (*Manifest, error) {
	d := &decoder{r: bufio.NewReader(bytes.NewReader(data))}
	if magic := d.u32(); d.err == nil && magic != Magic {
		return nil, fmt.Errorf("%w: magic %#x", ErrBadMagic, magic)
	}
	m := &Manifest{FileVersion: d.str()}
	if d.err == nil && m.FileVersion != FileVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, m.FileVersion)
	}
	m.EnableAddressable = d.boolean()
	m.SupportExtensionless = d.boolean()
	m.LocationToLower = d.boolean()
	m.IncludeAssetGUID = d.boolean()
	m.OutputNameStyle = FileNameStyle(d.str())
	m.BuildPipeline = d.str()
	m.PackageName = d.str()
	m.PackageVersion = d.str()
	m.PackageNote = d.str()

	n := d.count()
	m.AssetList = make([]Asset, 0, min(n, 1<<16))
	for i := 0; i < n && d.err == nil; i++ {
		m.AssetList = append(m.AssetList, Asset{
			Address:         d.str(),
			AssetPath:       d.str(),
			AssetGUID:       d.str(),
			AssetTags:       d.strs(),
			BundleID:        d.i32(),
			DependBundleIDs: d.ints(),
		})
	}

	n = d.count()
	m.BundleList = make([]Bundle, 0, min(n, 1<<16))
	for i := 0; i < n && d.err == nil; i++ {
		m.BundleList = append(m.BundleList, Bundle{
			BundleName:      d.str(),
			UnityCRC:        d.u32(),
			FileHash:        d.str(),
			FileCRC:         d.str(),
			FileSize:        d.i64(),
			Encrypted:       d.boolean(),
			Tags:            d.strs(),
			DependBundleIDs: d.ints(),
		})
	}
	if d.err != nil {
		return nil, fmt.Errorf("decode manifest: %w", d.err)
	}
	if err := m.checkIndices(); err != nil {
		return nil, err
	}
	m.initReferences()
	return m, nil
}

func (m *Manifest) checkIndices() error {
	valid := func(id int) bool { return id >= 0 && id < len(m.BundleList) }
	for _, a := range m.AssetList {
		if !valid(a.BundleID) {
			return fmt.Errorf("%w: asset %s bundle id %d", ErrCorrupt, a.AssetPath, a.BundleID)
		}
		for _, id := range a.DependBundleIDs {
			if !valid(id) {
				return fmt.Errorf("%w: asset %s dependency id %d", ErrCorrupt, a.AssetPath, id)
			}
		}
	}
	for _, b := range m.BundleList {
		for _, id := range b.DependBundleIDs {
			if !valid(id) {
				return fmt.Errorf("%w: bundle %s dependency id %d", ErrCorrupt, b.BundleName, id)
			}
		}
	}
	return nil
}

func (e *encoder) write(v any) {
	if e.err == nil {
		e.err = binary.Write(e.w, order, v)
	}
}

func (e *encoder) u32(v uint32) { e.write(v) }
func (e *encoder) i64(v int64)  { e.write(v) }

func (e *encoder) i32(v int) {
	if e.err == nil && (v < math.MinInt32 || v > math.MaxInt32) {
		e.err = fmt.Errorf("value %d overflows int32", v)
	}
	e.write(int32(v))
}

func (e *encoder) count(n int) { e.i32(n) }

func (e *encoder) boolean(v bool) {
	var b byte
	if v {
		b = 1
	}
	e.write(b)
}

func (e *encoder) str(s string) {
	if e.err == nil && len(s) > math.MaxUint16 {
		e.err = fmt.Errorf("string of %d bytes exceeds the manifest limit", len(s))
	}
	e.write(uint16(len(s)))
	if e.err == nil {
		e.w.WriteString(s)
	}
}

func (e *encoder) strs(list []string) {
	e.count(len(list))
	for _, s := range list {
		e.str(s)
	}
}

func (e *encoder) ints(list []int) {
	e.count(len(list))
	for _, v := range list {
		e.i32(v)
	}
}

func (d *decoder) read(v any) {
	if d.err == nil {
		d.err = binary.Read(d.r, order, v)
	}
}

func (d *decoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

func (d *decoder) i32() int {
	var v int32
	d.read(&v)
	return int(v)
}

func (d *decoder) i64() int64 {
	var v int64
	d.read(&v)
	return v
}

func (d *decoder) count() int {
	n := d.i32()
	if d.err == nil && n < 0 {
		d.err = fmt.Errorf("%w: negative count %d", ErrCorrupt, n)
	}
	if d.err != nil {
		return 0
	}
	return n
}

func (d *decoder) boolean() bool {
	var b byte
	d.read(&b)
	return b != 0
}

func (d *decoder) str() string {
	var n uint16
	d.read(&n)
	if d.err != nil {
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.err = err
		return ""
	}
	return string(buf)
}

func (d *decoder) strs() []string {
	n := d.count()
	out := make([]string, 0, min(n, 1<<10))
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.str())
	}
	return out
}

func (d *decoder) ints() []int {
	n := d.count()
	out := make([]int, 0, min(n, 1<<10))
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.i32())
	}
	return out
}
