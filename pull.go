package bomsync

import (
	"context"
	"fmt"
	"strconv"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/differ"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/history"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/tree"
)

// PullResult reports a pull.
type PullResult struct {
	Identity  string            `json:"identity" yaml:"identity"`
	RemoteRef string            `json:"remote_ref" yaml:"remote_ref"`
	Lines     []bom.Line        `json:"lines" yaml:"lines"`
	Changes   *differ.Changeset `json:"changes,omitempty" yaml:"changes,omitempty"`

	// Rows is the number of data rows written back to the sheet.
	Rows int `json:"rows" yaml:"rows"`
}

// Pull implements Reconciler.
//
// The remote lines replace the entity's lines in the sheet; other entities
// are rewritten unchanged. The sheet is re-rendered from the parsed tree,
// so rows without an item number are dropped and trailing rows are blanked.
func (r *reconciler) Pull(ctx context.Context, identity string) (*PullResult, error) {
	ctx = logging.WithOperation(logging.WithEntity(ctx, identity), "pull")

	rows, t, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	start, end, ok := entityRange(t.Lines, identity)
	if !ok {
		return nil, errors.NewNotFoundError("sheet entity", identity)
	}

	ref, err := r.remoteRef(ctx, identity)
	if err != nil {
		return nil, err
	}
	remote, err := r.lines.ListLines(ctx, ref)
	if err != nil {
		return nil, errors.WrapResource("list", "bom", ref, err)
	}
	pulled := bom.Lines(remote)
	for i := range pulled {
		// A level-0 line would start a new entity in the sheet.
		pulled[i].Level = max(pulled[i].Level, 1)
	}
	changes := r.differ.Compare(t.Lines[start+1:end], pulled)

	merged := make([]bom.Line, 0, len(t.Lines)-(end-start-1)+len(pulled))
	merged = append(merged, t.Lines[:start+1]...)
	merged = append(merged, pulled...)
	merged = append(merged, t.Lines[end:]...)

	header := rows[0]
	rendered, err := tree.Render(header, merged, r.cfg.Columns)
	if err != nil {
		return nil, err
	}
	written := len(rendered)
	for len(rendered) < len(rows)-1 {
		rendered = append(rendered, make(bom.Row, len(header)))
	}
	if err := r.source.WriteRows(ctx, 1, rendered); err != nil {
		return nil, err
	}

	eval, err := r.machine.MarkPulled(ctx, identity, ref, pulled)
	if err != nil {
		return nil, err
	}
	if _, err := r.log.Append(ctx, history.Event{
		EntityIdentity: identity,
		Type:           history.EventPull,
		StatusBefore:   string(eval.Previous),
		StatusAfter:    string(eval.Status),
		Summary:        fmt.Sprintf("pulled %d lines from %s", len(pulled), ref),
		Details: map[string]string{
			"remote_ref": ref,
			"lines":      strconv.Itoa(len(pulled)),
			"changes":    strconv.Itoa(changes.Summary().TotalChanges),
		},
	}); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info().
		Str("remote_ref", ref).
		Int("lines", len(pulled)).
		Int("rows", written).
		Msg("Pulled BOM")
	return &PullResult{
		Identity:  identity,
		RemoteRef: ref,
		Lines:     pulled,
		Changes:   changes,
		Rows:      written,
	}, nil
}

// entityRange returns the index of the root line of identity and the index
// of the next level-0 line, or len(lines).
func entityRange(lines []bom.Line, identity string) (start, end int, ok bool) {
	start = -1
	for i, l := range lines {
		if l.Level != 0 {
			continue
		}
		if start >= 0 {
			return start, i, true
		}
		if l.ItemNumber == identity {
			start = i
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, len(lines), true
}
