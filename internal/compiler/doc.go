// SPDX-License-Identifier: MPL-2.0

// Package compiler holds the collaborators that turn a bundle grouping into
// published files: the archive Compiler contract and its reference zip
// implementation, encryption services, the file metadata provider and the
// planned-versus-built verification.
package compiler
