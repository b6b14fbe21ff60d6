package sync

import (
	"fmt"
	"math"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Validate checks that every line can be pushed. It reports every offending
// line in one ValidationError and never touches the remote store.
func Validate(lines []bom.Line) error {
	var problems []errors.Problem
	for i, l := range lines {
		report := func(field, reason string) {
			problems = append(problems, errors.Problem{Index: i, ItemNumber: l.ItemNumber, Field: field, Reason: reason})
		}
		if l.ItemNumber == "" {
			report("item_number", "missing item number")
		}
		if !l.Resolved() {
			report("item_ref", "item reference not resolved")
		}
		if q := l.Quantity; math.IsNaN(q) || math.IsInf(q, 0) || !(q > 0) {
			report("quantity", fmt.Sprintf("quantity %s must be greater than zero", l.QuantityString()))
		}
		if l.Level < 0 {
			report("level", fmt.Sprintf("level %d must not be negative", l.Level))
		}
	}
	if len(problems) > 0 {
		return errors.NewAggregateValidationError("cannot push BOM", problems)
	}
	return nil
}
