// Package differ compares a local BOM line set with the remote store's view
// of the same BOM and reports field-level drift.
package differ

import (
	"sort"

	"github.com/agentstation/bomsync/pkg/bom"
)

// Compared field names, in report order.
const (
	FieldName        = "Name"
	FieldDescription = "Description"
	FieldCategory    = "Category"
	FieldLifecycle   = "Lifecycle"
	FieldQuantity    = "Quantity"
)

// Differ handles change detection between line sets.
type Differ interface {
	// Compare diffs local against remote, keyed by item number.
	Compare(local, remote []bom.Line) *Changeset
}

// differ is the default implementation of Differ.
type differ struct {
	ignoreFields map[string]bool
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreFields: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Compare diffs local against remote with default settings.
func Compare(local, remote []bom.Line) *Changeset {
	return New().Compare(local, remote)
}

// Compare implements Differ. Item numbers are assumed unique per side; when a
// side repeats a number the last occurrence wins.
func (diff *differ) Compare(local, remote []bom.Line) *Changeset {
	changeset := &Changeset{
		Added:    []bom.Line{},
		Modified: []LineUpdate{},
		Removed:  []bom.Line{},
	}

	localMap := make(map[string]bom.Line, len(local))
	for _, l := range local {
		localMap[l.ItemNumber] = l
	}
	remoteMap := make(map[string]bom.Line, len(remote))
	for _, l := range remote {
		remoteMap[l.ItemNumber] = l
	}

	for number, r := range remoteMap {
		l, exists := localMap[number]
		if !exists {
			changeset.Added = append(changeset.Added, r)
			continue
		}
		if changes := diff.line(l, r); len(changes) > 0 {
			changeset.Modified = append(changeset.Modified, LineUpdate{
				ItemNumber: number,
				Local:      l,
				Remote:     r,
				Changes:    changes,
			})
		}
	}
	for number, l := range localMap {
		if _, exists := remoteMap[number]; !exists {
			changeset.Removed = append(changeset.Removed, l)
		}
	}

	sortChangeset(changeset)
	return changeset
}

// line compares the five tracked fields. Equality is exact: no whitespace or
// numeric normalization.
func (diff *differ) line(local, remote bom.Line) []FieldChange {
	var changes []FieldChange
	add := func(field string, oldValue, newValue any) {
		if diff.ignoreFields[field] {
			return
		}
		changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}

	if local.Name != remote.Name {
		add(FieldName, local.Name, remote.Name)
	}
	if local.Description != remote.Description {
		add(FieldDescription, local.Description, remote.Description)
	}
	if local.Category != remote.Category {
		add(FieldCategory, local.Category, remote.Category)
	}
	if local.Lifecycle != remote.Lifecycle {
		add(FieldLifecycle, local.Lifecycle, remote.Lifecycle)
	}
	if local.Quantity != remote.Quantity {
		add(FieldQuantity, local.Quantity, remote.Quantity)
	}
	return changes
}

func sortChangeset(changeset *Changeset) {
	sort.Slice(changeset.Added, func(i, j int) bool {
		return changeset.Added[i].ItemNumber < changeset.Added[j].ItemNumber
	})
	sort.Slice(changeset.Modified, func(i, j int) bool {
		return changeset.Modified[i].ItemNumber < changeset.Modified[j].ItemNumber
	})
	sort.Slice(changeset.Removed, func(i, j int) bool {
		return changeset.Removed[i].ItemNumber < changeset.Removed[j].ItemNumber
	})
}
