// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"errors"
	"fmt"
	"os"
)

const (
	// EncryptionNone disables encryption.
	EncryptionNone = "none"
	// EncryptionOffset prefixes every file with zero bytes.
	EncryptionOffset = "offset"

	// DefaultEncryptionOffset is the prefix length of the offset service.
	DefaultEncryptionOffset = 32
)

// ErrUnknownService is returned for an unregistered service name.
var ErrUnknownService = errors.New("unknown service")

type (
	// EncryptFileInfo names the file to encrypt.
	EncryptFileInfo struct {
		BundleName string
		FilePath   string
	}

	// EncryptResult is the outcome of one encryption. Data is only meaningful when
	// Encrypted is set.
	EncryptResult struct {
		Encrypted bool
		Data      []byte
	}

	// EncryptionService encrypts archive files before publishing.
	EncryptionService interface {
		Name() string
		Encrypt(info EncryptFileInfo) (EncryptResult, error)
	}

	// Decrypter reverses an EncryptionService.
	Decrypter interface {
		Decrypt(data []byte) ([]byte, error)
	}

	// NoEncryption leaves every file as is.
	NoEncryption struct{}

	// OffsetEncryption shifts file content by Offset zero bytes, which defeats
	// naive archive extraction while keeping loads cheap.
	OffsetEncryption struct {
		Offset int
	}
)

// NewEncryptionService returns the service registered under name.
func NewEncryptionService(name string) (EncryptionService, error) {
	switch name {
	case "", EncryptionNone:
		return NoEncryption{}, nil
	case EncryptionOffset:
		return OffsetEncryption{Offset: DefaultEncryptionOffset}, nil
	default:
		return nil, fmt.Errorf("encryption %q: %w", name, ErrUnknownService)
	}
}

// Name implements EncryptionService.
func (NoEncryption) Name() string { return EncryptionNone }

// Encrypt implements EncryptionService.
func (NoEncryption) Encrypt(EncryptFileInfo) (EncryptResult, error) {
	return EncryptResult{}, nil
}

// Name implements EncryptionService.
func (OffsetEncryption) Name() string { return EncryptionOffset }

// Encrypt implements EncryptionService.
func (e OffsetEncryption) Encrypt(info EncryptFileInfo) (EncryptResult, error) {
	data, err := os.ReadFile(info.FilePath)
	if err != nil {
		return EncryptResult{}, fmt.Errorf("encrypt %s: %w", info.BundleName, err)
	}
	out := make([]byte, e.Offset+len(data))
	copy(out[e.Offset:], data)
	return EncryptResult{Encrypted: true, Data: out}, nil
}

// Decrypt implements Decrypter.
func (e OffsetEncryption) Decrypt(data []byte) ([]byte, error) {
	if len(data) < e.Offset {
		return nil, fmt.Errorf("encrypted data shorter than offset %d", e.Offset)
	}
	return data[e.Offset:], nil
}
