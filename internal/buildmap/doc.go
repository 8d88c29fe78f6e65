// SPDX-License-Identifier: MPL-2.0

// Package buildmap turns collected items into a closed build graph and groups the
// result into bundles.
//
// The Resolver runs the resolution phases in a fixed order: zero-reference
// pruning, explicit registration, dependency registration with reference
// counting, materialization of dependency lists, shader bundling, the shared
// bundle policy and final pruning. The Aggregator is the single owner of
// bundle membership.
package buildmap
