// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test doubles shared by the build phases.
//
// MemDB is an in-memory asset.Database whose fingerprints, references and paths
// are set directly by the test, so cache invalidation and rename behavior can be
// exercised without a project on disk. MustWriteFile and MustMkdirAll fail the
// test immediately on I/O errors.
package testutil
