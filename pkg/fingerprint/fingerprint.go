// Package fingerprint computes the content fingerprint used to detect local
// BOM edits cheaply.
//
// A fingerprint is the "|"-joined sequence of "itemNumber:quantity" pairs in
// line order. It is order-sensitive and ignores every other field, so
// renaming or re-leveling a line leaves it unchanged. It is not a hash and
// carries no integrity guarantee.
package fingerprint

import (
	"strings"

	"github.com/agentstation/bomsync/pkg/bom"
)

const (
	pairSeparator = "|"
	kvSeparator   = ":"
)

// Calculate returns the fingerprint of lines. An empty line set yields "".
func Calculate(lines []bom.Line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString(pairSeparator)
		}
		b.WriteString(l.ItemNumber)
		b.WriteString(kvSeparator)
		b.WriteString(l.QuantityString())
	}
	return b.String()
}

// Matches reports whether lines still carry the stored fingerprint.
func Matches(stored string, lines []bom.Line) bool {
	return stored == Calculate(lines)
}
