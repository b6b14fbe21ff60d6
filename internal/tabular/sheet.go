// Package tabular implements bom.TabularSource over CSV sheets kept on the
// local filesystem or in S3-compatible object storage.
package tabular

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// decode parses CSV data into rows. Ragged rows are allowed.
func decode(r io.Reader, name string) ([]bom.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = false

	var rows []bom.Row
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", name, err)
		}
		rows = append(rows, bom.Row(rec))
	}
	return rows, nil
}

// encode renders rows as CSV.
func encode(rows []bom.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, r := range rows {
		if err := w.Write([]string(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// patch overwrites rows starting at startRow, growing the sheet as needed.
func patch(existing []bom.Row, startRow int, rows []bom.Row) ([]bom.Row, error) {
	if startRow < 0 {
		return nil, errors.NewValidationError("startRow", startRow, "start row must not be negative")
	}
	out := make([]bom.Row, max(len(existing), startRow+len(rows)))
	copy(out, existing)
	for i, r := range rows {
		out[startRow+i] = append(bom.Row(nil), r...)
	}
	for i := range out {
		if out[i] == nil {
			out[i] = bom.Row{}
		}
	}
	return out, nil
}

// findColumn returns the index of the first header matching pred, or -1.
func findColumn(rows []bom.Row, pred func(string) bool) int {
	if len(rows) == 0 {
		return -1
	}
	for i, h := range rows[0] {
		if pred(h) {
			return i
		}
	}
	return -1
}
