// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestCatalog_EveryEntryHasMessage(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != int(OutputExistsId) {
		t.Fatalf("Values() len = %d, want %d", len(values), OutputExistsId)
	}
	for i, entry := range values {
		if entry.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, entry.Id(), i+1)
		}
		if strings.TrimSpace(string(entry.MarkdownMsg())) == "" {
			t.Errorf("issue %d has an empty message", entry.Id())
		}
	}
}

func TestCatalog_ForCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want Id
	}{
		{CodeHashConflict, HashConflictId},
		{CodeUnknownAsset, CacheInconsistencyId},
		{CodeMaterializeMiss, CacheInconsistencyId},
		{CodeDuplicateAddress, DuplicateAddressId},
		{CodeEmptyPackingSet, EmptyPackingSetId},
	}
	for _, tt := range tests {
		got := ForCode(tt.code)
		if got == nil || got.Id() != tt.want {
			t.Errorf("ForCode(%q) = %v, want id %d", tt.code, got, tt.want)
		}
	}
	if ForCode(CodeStrayBundle) != nil {
		t.Error("advisory codes have no catalog entry")
	}
}

func TestIssue_Render(t *testing.T) {
	original := render
	t.Cleanup(func() { render = original })

	var gotInput string
	render = func(in, _ string) (string, error) {
		gotInput = in
		return "rendered", nil
	}

	out, err := Get(InvalidConfigurationId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if out != "rendered" {
		t.Errorf("Render() = %q", out)
	}
	if !strings.Contains(gotInput, "## See also") {
		t.Errorf("Render() input should append doc links, got:\n%s", gotInput)
	}

	links := Get(InvalidConfigurationId).DocLinks()
	links[0] = "mutated"
	if Get(InvalidConfigurationId).DocLinks()[0] == "mutated" {
		t.Error("DocLinks() must return a copy")
	}
}
