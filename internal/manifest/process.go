// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	// ProcessNone stores the binary manifest as is.
	ProcessNone = "none"
	// ProcessZstd compresses the binary manifest with zstd.
	ProcessZstd = "zstd"
)

// ErrUnknownProcessService is returned for an unregistered service name.
var ErrUnknownProcessService = errors.New("unknown manifest process service")

type (
	// ProcessService transforms the binary manifest before it is written.
	ProcessService interface {
		Name() string
		Process(data []byte) ([]byte, error)
	}

	// RestoreService reverses a ProcessService when the manifest is read back.
	RestoreService interface {
		Restore(data []byte) ([]byte, error)
	}

	// Service processes and restores manifests.
	Service interface {
		ProcessService
		RestoreService
	}

	// NoProcess leaves manifest bytes untouched.
	NoProcess struct{}

	// ZstdService compresses manifests with zstd.
	ZstdService struct{}
)

// NewService returns the service registered under name.
func NewService(name string) (Service, error) {
	switch name {
	case "", ProcessNone:
		return NoProcess{}, nil
	case ProcessZstd:
		return ZstdService{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProcessService)
	}
}

// Name implements ProcessService.
func (NoProcess) Name() string { return ProcessNone }

// Process implements ProcessService.
func (NoProcess) Process(data []byte) ([]byte, error) { return data, nil }

// Restore implements RestoreService.
func (NoProcess) Restore(data []byte) ([]byte, error) { return data, nil }

// Name implements ProcessService.
func (ZstdService) Name() string { return ProcessZstd }

// Process implements ProcessService.
func (ZstdService) Process(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Restore implements RestoreService.
func (ZstdService) Restore(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("restore manifest: %w", err)
	}
	return out, nil
}
