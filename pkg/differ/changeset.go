package differ

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/bomsync/pkg/bom"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates a line exists only remotely.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates a line differs between the two sides.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates a line exists only locally.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific field. OldValue is the local
// value and NewValue the remote one; quantities are float64, everything else
// is a string.
type FieldChange struct {
	Field    string `json:"field" yaml:"field"`
	OldValue any    `json:"old_value" yaml:"old_value"`
	NewValue any    `json:"new_value" yaml:"new_value"`
}

// String renders the change as "Field: old → new".
func (f FieldChange) String() string {
	return fmt.Sprintf("%s: %s → %s", f.Field, formatValue(f.OldValue), formatValue(f.NewValue))
}

// LineUpdate represents a line present on both sides with differing fields.
type LineUpdate struct {
	ItemNumber string        `json:"item_number" yaml:"item_number"`
	Local      bom.Line      `json:"-" yaml:"-"`
	Remote     bom.Line      `json:"-" yaml:"-"`
	Changes    []FieldChange `json:"changes" yaml:"changes"`
}

// Changeset represents all changes between a local and a remote line set.
type Changeset struct {
	Added    []bom.Line   `json:"added" yaml:"added"`
	Modified []LineUpdate `json:"modified" yaml:"modified"`
	Removed  []bom.Line   `json:"removed" yaml:"removed"`
}

// Summary provides summary statistics for a changeset.
type Summary struct {
	Added        int `json:"added" yaml:"added"`
	Modified     int `json:"modified" yaml:"modified"`
	Removed      int `json:"removed" yaml:"removed"`
	TotalChanges int `json:"total" yaml:"total"`
}

// HasChanges returns true if the changeset contains any changes. A nil
// changeset has none.
func (c *Changeset) HasChanges() bool {
	if c == nil {
		return false
	}
	return len(c.Added) > 0 || len(c.Modified) > 0 || len(c.Removed) > 0
}

// Summary computes counts for the changeset.
func (c *Changeset) Summary() Summary {
	if c == nil {
		return Summary{}
	}
	s := Summary{
		Added:    len(c.Added),
		Modified: len(c.Modified),
		Removed:  len(c.Removed),
	}
	s.TotalChanges = s.Added + s.Modified + s.Removed
	return s
}

// ItemNumbers returns the sorted item numbers with the given change type.
func (c *Changeset) ItemNumbers(t ChangeType) []string {
	var out []string
	switch t {
	case ChangeTypeAdd:
		for _, l := range c.Added {
			out = append(out, l.ItemNumber)
		}
	case ChangeTypeUpdate:
		for _, u := range c.Modified {
			out = append(out, u.ItemNumber)
		}
	case ChangeTypeRemove:
		for _, l := range c.Removed {
			out = append(out, l.ItemNumber)
		}
	}
	return out
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return "No changes detected"
	}
	var parts []string
	if len(c.Added) > 0 {
		parts = append(parts, fmt.Sprintf("%d added", len(c.Added)))
	}
	if len(c.Modified) > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", len(c.Modified)))
	}
	if len(c.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", len(c.Removed)))
	}
	return fmt.Sprintf("Changeset: %s (Total: %d changes)", strings.Join(parts, ", "), c.Summary().TotalChanges)
}

// Print writes a detailed, human-readable view of the changeset to w.
func (c *Changeset) Print(w io.Writer) {
	_, _ = fmt.Fprintln(w, c.String())
	if !c.HasChanges() {
		return
	}
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 80))

	if len(c.Added) > 0 {
		_, _ = fmt.Fprintf(w, "\n➕ Only in remote (%d):\n", len(c.Added))
		for _, l := range c.Added {
			printLine(w, l)
		}
	}
	if len(c.Modified) > 0 {
		_, _ = fmt.Fprintf(w, "\n🔄 Modified (%d):\n", len(c.Modified))
		for _, u := range c.Modified {
			_, _ = fmt.Fprintf(w, "  • %s:\n", u.ItemNumber)
			for _, change := range u.Changes {
				_, _ = fmt.Fprintf(w, "    - %s\n", change)
			}
		}
	}
	if len(c.Removed) > 0 {
		_, _ = fmt.Fprintf(w, "\n⚠️  Only in local (%d):\n", len(c.Removed))
		for _, l := range c.Removed {
			printLine(w, l)
		}
	}
}

func printLine(w io.Writer, l bom.Line) {
	_, _ = fmt.Fprintf(w, "  • %s", l.ItemNumber)
	if l.Name != "" {
		_, _ = fmt.Fprintf(w, " (%s)", l.Name)
	}
	_, _ = fmt.Fprintf(w, " x%s\n", l.QuantityString())
}

func formatValue(v any) string {
	switch val := v.(type) {
	case float64:
		return bom.FormatQuantity(val)
	case string:
		if val == "" {
			return `""`
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}
