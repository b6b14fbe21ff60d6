package tree

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Config names the columns the builder looks for. Names are matched
// case-insensitively after trimming; when a name is not present the builder
// falls back to fuzzy matching.
type Config struct {
	LevelColumn       string   `mapstructure:"level"`
	ItemNumberColumn  string   `mapstructure:"item_number"`
	QuantityColumn    string   `mapstructure:"quantity"`
	CategoryColumn    string   `mapstructure:"category"`
	NameColumn        string   `mapstructure:"name"`
	DescriptionColumn string   `mapstructure:"description"`
	LifecycleColumn   string   `mapstructure:"lifecycle"`
	Indent            string   `mapstructure:"indent"`
	IgnoreColumns     []string `mapstructure:"ignore"`
}

// DefaultConfig returns the column names used by the standard BOM sheet.
func DefaultConfig() Config {
	return Config{
		LevelColumn:       constants.ColumnLevel,
		ItemNumberColumn:  constants.ColumnItemNumber,
		QuantityColumn:    constants.ColumnQuantity,
		CategoryColumn:    constants.ColumnCategory,
		NameColumn:        constants.ColumnName,
		DescriptionColumn: constants.ColumnDescription,
		LifecycleColumn:   constants.ColumnLifecycle,
		Indent:            "  ",
	}
}

// Columns holds located column indices; -1 means absent.
type Columns struct {
	Level       int
	ItemNumber  int
	Quantity    int
	Category    int
	Name        int
	Description int
	Lifecycle   int

	headers []string
	known   map[int]bool
}

// Attributes returns the header names of columns not mapped to a line field,
// keyed by index.
func (c Columns) Attributes() map[int]string {
	out := make(map[int]string)
	for i, h := range c.headers {
		if c.known[i] || strings.TrimSpace(h) == "" {
			continue
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// column describes how one logical column is located.
type column struct {
	name    string
	aliases []string
	fuzzy   func(folded string) bool
	target  *int
}

// Locate finds the BOM columns in a header row. Only the item-number column
// is required.
func Locate(header bom.Row, cfg Config) (Columns, error) {
	fold := cases.Fold()
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = fold.String(strings.TrimSpace(h))
	}

	cols := Columns{
		Level: -1, ItemNumber: -1, Quantity: -1, Category: -1,
		Name: -1, Description: -1, Lifecycle: -1,
		headers: []string(header),
		known:   make(map[int]bool),
	}
	for _, ignored := range cfg.IgnoreColumns {
		for i, f := range folded {
			if f == fold.String(strings.TrimSpace(ignored)) {
				cols.known[i] = true
			}
		}
	}

	specs := []column{
		{name: cfg.ItemNumberColumn, aliases: []string{"item number", "part number", "item #"}, target: &cols.ItemNumber,
			fuzzy: func(f string) bool {
				return (strings.Contains(f, "item") || strings.Contains(f, "part")) &&
					(strings.Contains(f, "number") || strings.Contains(f, "#"))
			}},
		{name: cfg.QuantityColumn, aliases: []string{"qty", "quantity"}, target: &cols.Quantity,
			fuzzy: func(f string) bool { return strings.Contains(f, "qty") || strings.Contains(f, "quantity") }},
		{name: cfg.LevelColumn, aliases: []string{"level", "lvl"}, target: &cols.Level,
			fuzzy: func(f string) bool { return strings.Contains(f, "level") }},
		{name: cfg.CategoryColumn, aliases: []string{"category"}, target: &cols.Category,
			fuzzy: func(f string) bool { return strings.Contains(f, "category") }},
		{name: cfg.DescriptionColumn, aliases: []string{"description"}, target: &cols.Description,
			fuzzy: func(f string) bool { return strings.Contains(f, "description") }},
		{name: cfg.LifecycleColumn, aliases: []string{"lifecycle", "lifecycle phase"}, target: &cols.Lifecycle,
			fuzzy: func(f string) bool { return strings.Contains(f, "lifecycle") }},
		{name: cfg.NameColumn, aliases: []string{"name", "item name"}, target: &cols.Name},
	}

	// Exact names first so a fuzzy match never steals a column that a later
	// spec names exactly.
	for _, spec := range specs {
		names := append([]string{spec.name}, spec.aliases...)
		for _, n := range names {
			if n == "" {
				continue
			}
			want := fold.String(strings.TrimSpace(n))
			if idx := indexOf(folded, cols.known, func(f string) bool { return f == want }); idx >= 0 {
				*spec.target = idx
				cols.known[idx] = true
				break
			}
		}
	}
	for _, spec := range specs {
		if *spec.target >= 0 || spec.fuzzy == nil {
			continue
		}
		if idx := indexOf(folded, cols.known, spec.fuzzy); idx >= 0 {
			*spec.target = idx
			cols.known[idx] = true
		}
	}

	if cols.ItemNumber < 0 {
		name := cfg.ItemNumberColumn
		if name == "" {
			name = constants.ColumnItemNumber
		}
		return cols, &errors.MissingColumnError{Column: name, Headers: []string(header)}
	}
	return cols, nil
}

func indexOf(folded []string, taken map[int]bool, pred func(string) bool) int {
	for i, f := range folded {
		if taken[i] || f == "" {
			continue
		}
		if pred(f) {
			return i
		}
	}
	return -1
}

// HeaderMatcher returns a predicate for TabularSource.FindColumn that matches
// a header case-insensitively.
func HeaderMatcher(name string) func(string) bool {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	return func(h string) bool {
		return cases.Fold().String(strings.TrimSpace(h)) == want
	}
}
