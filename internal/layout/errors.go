// Package layout resolves symbolic placement descriptors into absolute,
// non-overlapping canvas coordinates.
package layout

import (
	"fmt"
	"strings"
)

// ConflictError reports elements the resolver could not place without
// overlap after exhausting its nudge budget. The returned specification
// still carries the failed elements, flagged, so callers can surface them
// as a revisable draft.
type ConflictError struct {
	Elements []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("placement conflict: could not place %s without overlap", strings.Join(e.Elements, ", "))
}
