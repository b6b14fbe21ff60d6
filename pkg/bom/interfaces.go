package bom

import "context"

// ItemStore is the remote PLM item API. Implementations normalize remote
// field casing before returning.
type ItemStore interface {
	Search(ctx context.Context, text string) ([]Item, error)
	GetByRef(ctx context.Context, ref string) (Item, error)

	// GetByNumber reports found=false, with a nil error, when no item carries
	// the number. Errors are reserved for genuine failures.
	GetByNumber(ctx context.Context, number string) (item Item, found bool, err error)

	Create(ctx context.Context, fields ItemFields) (Item, error)
	Update(ctx context.Context, ref string, fields ItemFields) (Item, error)
	Delete(ctx context.Context, ref string) error
}

// BOMStore is the remote BOM line API of a parent item.
type BOMStore interface {
	ListLines(ctx context.Context, parentRef string) ([]RemoteLine, error)
	CreateLine(ctx context.Context, parentRef string, in LineInput) (RemoteLine, error)
	DeleteLine(ctx context.Context, parentRef, lineRef string) error
}

// Row is one tabular row of cells.
type Row []string

// Cell returns the cell at i, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// TabularSource is the row-based editor holding the local BOM. Row 0 of
// ReadRows is the header row.
type TabularSource interface {
	ReadRows(ctx context.Context) ([]Row, error)
	WriteRows(ctx context.Context, startRow int, rows []Row) error
	FindColumn(ctx context.Context, pred func(header string) bool) (int, error)
}
