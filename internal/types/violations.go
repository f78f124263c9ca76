//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// Violation represents a single specification rule failure.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Details string `json:"details"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Field, v.Details, v.Rule)
}

// Violations represents a collection of specification rule failures.
type Violations struct {
	Violations []Violation `json:"violations"`
}

// Add appends a violation.
func (vs *Violations) Add(field, rule, details string) {
	vs.Violations = append(vs.Violations, Violation{Field: field, Rule: rule, Details: details})
}

// Empty reports whether no violations were recorded.
func (vs *Violations) Empty() bool {
	return len(vs.Violations) == 0
}

// Summary returns a one-line human-readable list, for error messages.
func (vs *Violations) Summary() string {
	parts := make([]string, 0, len(vs.Violations))
	for _, v := range vs.Violations {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}
