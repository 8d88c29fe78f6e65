// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"sort"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	InvalidConfigurationId Id = iota + 1
	UnknownRuleId
	DuplicateCollectPathId
	DuplicateAddressId
	CacheInconsistencyId
	EmptyPackingSetId
	HashConflictId
	BuildResultMismatchId
	InternalInvariantId
	OutputExistsId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		codes    []Code // build error codes documented by this entry
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) Codes() []Code {
	return slices.Clone(i.codes)
}

// Render renders the Markdown message with the given glamour style ("dark", "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	invalidConfigurationIssue = &Issue{
		id:    InvalidConfigurationId,
		codes: []Code{CodeInvalidParameter, CodeInvalidCollector, CodeInvalidAddress, CodeEmptyBundleName, CodeBundleNameTooLong},
		mdMsg: `
# The project configuration is invalid!

A collector, group or build parameter in your project file cannot be used as written.

## Things you can try:
- Check that every collector's ` + "`collect_path`" + ` exists under ` + "`Assets/`" + `
- A collector kind must be one of ` + "`main`, `static`, `dependency`" + `
- Addresses must not be asset paths (they may not start with ` + "`Assets/`" + `)
- Package name and package version are required:
~~~
$ bundlemap build --version 1.0.0
~~~`,
		docLinks: []HttpLink{"https://github.com/invowk/bundlemap#configuration"},
	}

	unknownRuleIssue = &Issue{
		id:    UnknownRuleId,
		codes: []Code{CodeUnknownRule},
		mdMsg: `
# Unknown collection rule!

A collector names a filter, address, pack or ignore rule that is not registered.

## Things you can try:
- Check the rule name for typos (names are case sensitive)
- List the built-in rules:
~~~
$ bundlemap config show --rules
~~~`,
	}

	duplicateCollectPathIssue = &Issue{
		id:    DuplicateCollectPathId,
		codes: []Code{CodeDuplicateCollectPath},
		mdMsg: `
# An asset is collected more than once!

Two collectors (or one collector twice) collect the same asset path. Every asset must
belong to exactly one collector.

## Things you can try:
- Narrow the overlapping collectors with a ` + "`CollectGlob`" + ` filter rule
- Move the asset into a folder owned by a single collector`,
	}

	duplicateAddressIssue = &Issue{
		id:    DuplicateAddressId,
		codes: []Code{CodeDuplicateAddress},
		mdMsg: `
# Duplicate asset address!

Addressing is enabled and two main assets resolved to the same address. Both paths are
listed in the error above.

## Things you can try:
- Rename one of the assets
- Use ` + "`AddressByFolderAndFileName`" + ` or ` + "`AddressByGroupAndFileName`" + ` for this collector`,
	}

	cacheInconsistencyIssue = &Issue{
		id:    CacheInconsistencyId,
		codes: []Code{CodeUnknownAsset, CodeMaterializeMiss},
		mdMsg: `
# The dependency cache is inconsistent!

An asset was requested from the dependency cache that the cache never registered during
this run's scan. This signals a corrupted cache file or a logic bug.

## Things you can try:
- Delete the cache and rebuild:
~~~
$ bundlemap cache clear
$ bundlemap build
~~~`,
	}

	emptyPackingSetIssue = &Issue{
		id:    EmptyPackingSetId,
		codes: []Code{CodeEmptyPackingSet},
		mdMsg: `
# Nothing to pack!

After collection and graph resolution no asset has a bundle name.

## Things you can try:
- Make sure at least one group is active and has a ` + "`main`" + ` collector
- Check that your ignore rule does not exclude every asset`,
	}

	hashConflictIssue = &Issue{
		id:    HashConflictId,
		codes: []Code{CodeHashConflict},
		mdMsg: `
# Bundle hash conflict!

Two bundles produced identical final file hashes. The manifest cannot represent two
bundles under one hash, so nothing was written.

## Things you can try:
- Look for byte-identical source assets packed into separate bundles
- If you use an encryption service, make sure it does not produce constant output`,
	}

	buildResultMismatchIssue = &Issue{
		id:    BuildResultMismatchId,
		codes: []Code{CodeBuildResultMismatch, CodeCompileFailed},
		mdMsg: `
# The archive compiler output does not match the build plan!

The set of bundles produced by the archive compiler differs from the planned grouping.
Every difference is listed as a warning above.

## Things you can try:
- Run with ` + "`--verbose`" + ` to see each planned and produced bundle
- Disable verification with ` + "`build.verify_build_result: false`" + ` only while investigating`,
	}

	internalInvariantIssue = &Issue{
		id:    InternalInvariantId,
		codes: []Code{CodeDuplicateBuildItem, CodeBundleReassigned, CodeDuplicateItem, CodeUnknownBundle},
		mdMsg: `
# Internal error!

The build reached a state that must never happen. Please report it together with the
output of:
~~~
$ bundlemap --verbose plan
~~~`,
	}

	outputExistsIssue = &Issue{
		id:    OutputExistsId,
		codes: []Code{CodeOutputExists},
		mdMsg: `
# The package version was already built!

The output directory for this package version already exists. Published versions are
never overwritten.

## Things you can try:
- Bump the package version:
~~~
$ bundlemap build --version 1.0.1
~~~`,
	}

	issues = map[Id]*Issue{
		invalidConfigurationIssue.Id(): invalidConfigurationIssue,
		unknownRuleIssue.Id():          unknownRuleIssue,
		duplicateCollectPathIssue.Id(): duplicateCollectPathIssue,
		duplicateAddressIssue.Id():     duplicateAddressIssue,
		cacheInconsistencyIssue.Id():   cacheInconsistencyIssue,
		emptyPackingSetIssue.Id():      emptyPackingSetIssue,
		hashConflictIssue.Id():         hashConflictIssue,
		buildResultMismatchIssue.Id():  buildResultMismatchIssue,
		internalInvariantIssue.Id():    internalInvariantIssue,
		outputExistsIssue.Id():         outputExistsIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].id < out[b].id })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForCode returns the catalog entry documenting code, or nil.
func ForCode(code Code) *Issue {
	for _, i := range Values() {
		if slices.Contains(i.codes, code) {
			return i
		}
	}
	return nil
}
