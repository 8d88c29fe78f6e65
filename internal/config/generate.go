// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/invowk/bundlemap/internal/collect"
)

func writeCollector(sb *strings.Builder, cc collect.Collector) {
	fields := []struct{ key, value string }{
		{"collect_path", cc.CollectPath},
		{"kind", string(cc.Kind)},
		{"filter_rule", cc.FilterRuleName},
		{"address_rule", cc.AddressRuleName},
		{"pack_rule", cc.PackRuleName},
		{"tags", cc.Tags},
		{"user_data", cc.UserData},
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value != "" {
			parts = append(parts, fmt.Sprintf("%s: %q", f.key, f.value))
		}
	}
	fmt.Fprintf(sb, "\t\t\t\t\t{%s},\n", strings.Join(parts, ", "))
}
