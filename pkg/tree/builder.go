// Package tree parses the flat, human-edited row representation of a BOM
// into an ordered, leveled line sequence, and renders lines back to rows.
package tree

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Build parses rows into a tree. rows[0] is the header row.
//
// Rows whose item-number cell is blank are skipped. Leading whitespace used
// as visual indentation is stripped from item numbers. Quantity defaults to
// 1 and level to 0 when their columns are absent or the cell is blank.
// Unparseable numbers are reported together in one ValidationError.
func Build(rows []bom.Row, cfg Config) (*bom.Tree, error) {
	if len(rows) == 0 {
		return nil, &errors.MissingColumnError{Column: cfg.ItemNumberColumn}
	}
	cols, err := Locate(rows[0], cfg)
	if err != nil {
		return nil, err
	}
	attrs := cols.Attributes()

	t := &bom.Tree{}
	rootSeen := false
	var problems []errors.Problem

	for r := 1; r < len(rows); r++ {
		row := rows[r]
		number := strings.TrimSpace(row.Cell(cols.ItemNumber))
		if number == "" {
			continue
		}

		line := bom.Line{
			ItemNumber:  number,
			Level:       0,
			Quantity:    1,
			Category:    strings.TrimSpace(row.Cell(cols.Category)),
			Name:        strings.TrimSpace(row.Cell(cols.Name)),
			Description: strings.TrimSpace(row.Cell(cols.Description)),
			Lifecycle:   strings.TrimSpace(row.Cell(cols.Lifecycle)),
		}

		if raw := strings.TrimSpace(row.Cell(cols.Level)); raw != "" {
			level, perr := parseLevel(raw)
			if perr != nil {
				problems = append(problems, errors.Problem{Index: r, ItemNumber: number, Field: "level", Reason: perr.Error()})
			}
			line.Level = level
		}
		if raw := strings.TrimSpace(row.Cell(cols.Quantity)); raw != "" {
			qty, perr := parseQuantity(raw)
			if perr != nil {
				problems = append(problems, errors.Problem{Index: r, ItemNumber: number, Field: "quantity", Reason: perr.Error()})
			}
			line.Quantity = qty
		}

		for idx, header := range attrs {
			if v := strings.TrimSpace(row.Cell(idx)); v != "" {
				if line.Attributes == nil {
					line.Attributes = make(map[string]string)
				}
				line.Attributes[header] = v
			}
		}

		if !rootSeen && line.Level == 0 {
			t.RootCategory = line.Category
			rootSeen = true
		}
		t.Lines = append(t.Lines, line)
	}

	// Problem.Index is the zero-based sheet row, so problems render with the
	// one-based row number a user sees in the editor.
	if len(problems) > 0 {
		return nil, errors.NewAggregateValidationError("sheet has invalid rows", problems)
	}
	return t, nil
}

// parseQuantity accepts finite positive numbers only. ParseFloat alone
// would let "NaN" and "Inf" through.
func parseQuantity(raw string) (float64, error) {
	q, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, fmt.Errorf("quantity %q is not a number", raw)
	}
	if !(q > 0) {
		return 0, fmt.Errorf("quantity %q must be greater than zero", raw)
	}
	return q, nil
}

func parseLevel(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("level %d is negative", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("level %q is not a whole number", raw)
	}
	if f < 0 {
		return 0, fmt.Errorf("level %q is negative", raw)
	}
	return int(f), nil
}
