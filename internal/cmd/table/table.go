// Package table converts reconciliation results into table rows for CLI
// output.
package table

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/agentstation/utc"

	"github.com/agentstation/bomsync/internal/cmd/emoji"
	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/differ"
	"github.com/agentstation/bomsync/pkg/history"
	"github.com/agentstation/bomsync/pkg/status"
	"github.com/agentstation/bomsync/pkg/transaction"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// TimeLayout is the timestamp layout used in tables.
const TimeLayout = "2006-01-02 15:04:05"

// shortFingerprint keeps long fingerprints readable in a cell.
func shortFingerprint(fp string) string {
	const limit = 32
	if len(fp) <= limit {
		return fp
	}
	return fp[:limit-3] + "..."
}

// StatusToTableData converts evaluations to table format.
func StatusToTableData(evals []status.Evaluation) Data {
	rows := make([][]string, 0, len(evals))
	for _, e := range evals {
		detail := ""
		switch {
		case e.Err != nil:
			detail = e.Err.Error()
		case e.Changes.HasChanges():
			s := e.Changes.Summary()
			detail = fmt.Sprintf("+%d ~%d -%d", s.Added, s.Modified, s.Removed)
		}
		rows = append(rows, []string{
			emoji.ForStatus(e.Status),
			e.Identity,
			string(e.Status),
			string(e.Previous),
			e.RemoteRef,
			detail,
		})
	}
	return Data{
		Headers:         []string{"", "Entity", "Status", "Previous", "Remote Ref", "Detail"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignCenter, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
	}
}

// RecordsToTableData converts stored entity records to table format.
func RecordsToTableData(recs []status.EntityRecord) Data {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			emoji.ForStatus(status.Status(r.Status)),
			r.Identity,
			r.Status,
			r.RemoteRef,
			shortFingerprint(r.Fingerprint),
			formatTime(r.LastSync),
			formatTime(r.LastPush),
		})
	}
	return Data{
		Headers: []string{"", "Entity", "Status", "Remote Ref", "Fingerprint", "Last Sync", "Last Push"},
		Rows:    rows,
	}
}

func formatTime(t utc.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Time.Format(TimeLayout)
}

// ChangesToTableData converts a changeset to one row per changed field.
// Added and removed lines are described from the remote side: added lines
// exist only remotely, removed lines exist only locally.
func ChangesToTableData(cs *differ.Changeset) Data {
	var rows [][]string
	if cs != nil {
		for _, l := range cs.Added {
			rows = append(rows, []string{l.ItemNumber, "remote only", "", "", bom.FormatQuantity(l.Quantity)})
		}
		for _, u := range cs.Modified {
			for _, c := range u.Changes {
				rows = append(rows, []string{u.ItemNumber, "modified", c.Field, fmt.Sprint(c.OldValue), fmt.Sprint(c.NewValue)})
			}
		}
		for _, l := range cs.Removed {
			rows = append(rows, []string{l.ItemNumber, "local only", "", bom.FormatQuantity(l.Quantity), ""})
		}
	}
	return Data{
		Headers:         []string{"Item Number", "Change", "Field", "Local", "Remote"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight},
	}
}

// HistoryToTableData converts events to table format, oldest first.
func HistoryToTableData(events []history.Event) Data {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		transition := ""
		if e.StatusBefore != "" || e.StatusAfter != "" {
			transition = fmt.Sprintf("%s → %s", orNone(e.StatusBefore), orNone(e.StatusAfter))
		}
		rows = append(rows, []string{
			e.Timestamp.Time.Format(TimeLayout),
			e.EntityIdentity,
			string(e.Type),
			e.Actor,
			transition,
			e.Summary,
		})
	}
	return Data{
		Headers: []string{"Time", "Entity", "Type", "Actor", "Status", "Summary"},
		Rows:    rows,
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// EntriesToTableData lists transaction entries in the given order with
// their position, so a reversed slice shows rollback order.
func EntriesToTableData(entries []transaction.Entry) Data {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{strconv.Itoa(i + 1), e.EntityType, e.Identity, e.RemoteRef})
	}
	return Data{
		Headers:         []string{"#", "Type", "Entity", "Remote Ref"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

// RollbackOrder returns the entries of c in the order rollback deletes them.
func RollbackOrder(c *transaction.Context) []transaction.Entry {
	out := slices.Clone(c.Entries)
	slices.Reverse(out)
	return out
}

// PlanToTableData lists a plan's entities in creation order.
func PlanToTableData(p *transaction.Plan) Data {
	specs := p.Ordered()
	rows := make([][]string, 0, len(specs))
	for i, s := range specs {
		rows = append(rows, []string{strconv.Itoa(i + 1), s.Type, s.Number, s.ItemFields().Name, strconv.Itoa(len(s.Lines))})
	}
	return Data{
		Headers:         []string{"#", "Type", "Number", "Name", "Lines"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignRight},
	}
}

// LinesToTableData lists BOM lines as they will be, or were, written
// remotely.
func LinesToTableData(lines []bom.RemoteLine) Data {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{
			strconv.Itoa(l.SequenceNumber),
			l.ItemNumber,
			bom.FormatQuantity(l.Quantity),
			l.Name,
			l.Ref,
		})
	}
	return Data{
		Headers:         []string{"Seq", "Item Number", "Qty", "Name", "Line Ref"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignRight, AlignLeft, AlignLeft},
	}
}
