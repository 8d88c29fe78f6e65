// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"fmt"
	"log/slog"
	"sync"
)

const (
	// SeverityWarning indicates an advisory condition; the run continues.
	SeverityWarning Severity = "warning"
	// SeverityInfo indicates a noteworthy but expected condition.
	SeverityInfo Severity = "info"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a structured advisory produced during a build.
	Diagnostic struct {
		Severity Severity `json:"severity" toml:"severity"`
		Code     Code     `json:"code" toml:"code"`
		Message  string   `json:"message" toml:"message"`
		// Resource is the asset path or bundle name involved (optional).
		Resource string `json:"resource,omitempty" toml:"resource,omitempty"`
	}

	// Diagnostics collects diagnostics and mirrors each warning to a logger.
	// The zero value is ready to use and discards log output.
	Diagnostics struct {
		mu     sync.Mutex
		logger *slog.Logger
		items  []Diagnostic
	}
)

// NewDiagnostics creates a collector that logs every warning to logger.
func NewDiagnostics(logger *slog.Logger) *Diagnostics {
	return &Diagnostics{logger: logger}
}

// Warn records a warning and logs it.
func (d *Diagnostics) Warn(code Code, resource, format string, args ...any) {
	d.add(Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Resource: resource,
	})
}

// Info records an informational diagnostic and logs it at debug level.
func (d *Diagnostics) Info(code Code, resource, format string, args ...any) {
	d.add(Diagnostic{
		Severity: SeverityInfo,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Resource: resource,
	})
}

func (d *Diagnostics) add(diag Diagnostic) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.items = append(d.items, diag)
	logger := d.logger
	d.mu.Unlock()

	if logger == nil {
		return
	}
	attrs := []any{"code", diag.Code}
	if diag.Resource != "" {
		attrs = append(attrs, "resource", diag.Resource)
	}
	if diag.Severity == SeverityWarning {
		logger.Warn(diag.Message, attrs...)
	} else {
		logger.Debug(diag.Message, attrs...)
	}
}

// All returns a copy of the recorded diagnostics in recording order.
func (d *Diagnostics) All() []Diagnostic {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}

// Count returns how many diagnostics with the given code were recorded.
func (d *Diagnostics) Count(code Code) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, item := range d.items {
		if item.Code == code {
			n++
		}
	}
	return n
}
