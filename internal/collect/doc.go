// SPDX-License-Identifier: MPL-2.0

// Package collect implements the collection engine.
//
// A Package holds groups of collectors. Each collector enumerates candidate
// assets under its collect path, drops the ones the package ignore rule rejects,
// keeps the ones its filter rule accepts, and assigns an address, a bundle name
// and tags to each survivor. Every collected item carries its transitive
// dependency list, resolved through the dependency cache.
package collect
