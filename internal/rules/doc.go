// SPDX-License-Identifier: MPL-2.0

// Package rules defines the collection rule contracts and the built-in rules.
//
// Filter, address, pack and ignore rules are pure functions of a Data record
// (asset path, collect path, group name, user data). Rules are resolved by
// name once, when the collector configuration is loaded, through a Registry.
package rules
