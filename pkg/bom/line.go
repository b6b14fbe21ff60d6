// Package bom defines the bill-of-materials data model shared by every
// reconciliation component, and the collaborator interfaces for the remote
// PLM stores and the tabular editor.
package bom

import (
	"maps"
	"strconv"
)

// Line is one row of a hierarchical BOM.
//
// ItemRef is the remote identity of the referenced item; an empty ItemRef
// means the line has not been resolved yet and cannot be pushed.
type Line struct {
	Level       int               `json:"level" yaml:"level"`
	ItemNumber  string            `json:"item_number" yaml:"item_number"`
	ItemRef     string            `json:"item_ref,omitempty" yaml:"item_ref,omitempty"`
	Quantity    float64           `json:"quantity" yaml:"quantity"`
	Category    string            `json:"category,omitempty" yaml:"category,omitempty"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Lifecycle   string            `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Resolved reports whether the line carries a remote item reference.
func (l Line) Resolved() bool {
	return l.ItemRef != ""
}

// Attribute returns the named attribute value, or "" when absent.
func (l Line) Attribute(key string) string {
	if l.Attributes == nil {
		return ""
	}
	return l.Attributes[key]
}

// Clone returns a deep copy of the line.
func (l Line) Clone() Line {
	c := l
	if l.Attributes != nil {
		c.Attributes = maps.Clone(l.Attributes)
	}
	return c
}

// QuantityString formats the quantity with the shortest exact decimal form,
// so 1 renders as "1" and 2.5 as "2.5".
func (l Line) QuantityString() string {
	return FormatQuantity(l.Quantity)
}

// FormatQuantity formats a quantity the way fingerprints and rendered rows expect.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// CloneLines deep-copies a line slice.
func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}

// RemoteLine is the remote store's view of a BOM entry. Ref identifies the
// BOM line itself and is distinct from Line.ItemRef.
type RemoteLine struct {
	Ref            string `json:"ref" yaml:"ref"`
	SequenceNumber int    `json:"sequence_number" yaml:"sequence_number"`
	Line           `yaml:",inline"`
}

// Lines strips remote identities, returning the lines in remote order.
func Lines(remote []RemoteLine) []Line {
	out := make([]Line, len(remote))
	for i, r := range remote {
		out[i] = r.Line.Clone()
	}
	return out
}

// LineInput is the payload of a remote BOM line create call.
type LineInput struct {
	ItemRef        string            `json:"item_ref"`
	Quantity       float64           `json:"quantity"`
	Level          int               `json:"level"`
	SequenceNumber int               `json:"sequence_number"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}
