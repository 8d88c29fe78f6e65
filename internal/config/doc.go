// SPDX-License-Identifier: MPL-2.0

// Package config loads the project file bundlemap.cue using Viper with CUE as the file
// format.
//
// The file is validated against the embedded #Config schema (config_schema.cue) and merged
// over the defaults. BUNDLEMAP_* environment variables override any key, with dots
// replaced by underscores (BUNDLEMAP_BUILD_OUTPUT_ROOT). Path values are expanded with
// shell syntax, so $HOME and ${VAR} work.
package config
