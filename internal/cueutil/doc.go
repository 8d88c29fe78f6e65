// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles CUE documents against an embedded schema definition and
// formats CUE errors with the path of the offending field.
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	v, err := cueutil.Unify(schema, data, "#Config", cueutil.WithFilename("bundlemap.cue"))
package cueutil
