package tree

import (
	"strconv"
	"strings"

	"github.com/agentstation/bomsync/pkg/bom"
)

// Render converts lines back to rows laid out under header. The item-number
// cell is indented by cfg.Indent once per level. Attribute values are written
// to the column whose header matches the attribute key exactly.
func Render(header bom.Row, lines []bom.Line, cfg Config) ([]bom.Row, error) {
	cols, err := Locate(header, cfg)
	if err != nil {
		return nil, err
	}
	attrs := cols.Attributes()

	rows := make([]bom.Row, 0, len(lines))
	for _, l := range lines {
		row := make(bom.Row, len(header))
		set := func(idx int, v string) {
			if idx >= 0 && idx < len(row) {
				row[idx] = v
			}
		}
		set(cols.ItemNumber, strings.Repeat(cfg.Indent, l.Level)+l.ItemNumber)
		set(cols.Level, strconv.Itoa(l.Level))
		set(cols.Quantity, l.QuantityString())
		set(cols.Category, l.Category)
		set(cols.Name, l.Name)
		set(cols.Description, l.Description)
		set(cols.Lifecycle, l.Lifecycle)
		for idx, key := range attrs {
			set(idx, l.Attribute(key))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
