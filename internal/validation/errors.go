// Package validation enforces the composition specification invariants.
package validation

import (
	"fmt"

	"github.com/jonathan/creative-composer/internal/types"
)

// Error reports that a specification failed validation. It carries the full
// violation list so callers can return a revisable draft instead of an
// opaque failure.
type Error struct {
	Violations types.Violations
}

func (e *Error) Error() string {
	return fmt.Sprintf("specification invalid: %s", e.Violations.Summary())
}
