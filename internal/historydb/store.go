// Package historydb is a SQLite-backed history.Store.
package historydb

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentstation/utc"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/history"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps events and summaries in one SQLite database. Event rows are
// protected by triggers that abort any UPDATE or DELETE.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path. Parent directories are
// created as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("mkdir", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("connect", path, err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.WrapIO("pragma", path, fmt.Errorf("%s: %w", pragma, err))
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("schema", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// AppendEvent implements history.Store.
func (s *Store) AppendEvent(ctx context.Context, e history.Event) error {
	details := []byte("{}")
	if len(e.Details) > 0 {
		var err error
		if details, err = json.Marshal(e.Details); err != nil {
			return errors.WrapParse("json", "details", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, timestamp, entity_identity, type, actor,
		                    status_before, status_after, summary, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.Timestamp), e.EntityIdentity, string(e.Type), e.Actor,
		e.StatusBefore, e.StatusAfter, e.Summary, string(details),
	)
	if err != nil {
		return errors.WrapIO("insert event", s.path, err)
	}
	return nil
}

// Events implements history.Store.
func (s *Store) Events(ctx context.Context, identity string) ([]history.Event, error) {
	query := `SELECT id, timestamp, entity_identity, type, actor,
	                 status_before, status_after, summary, details
	          FROM events`
	var args []any
	if identity != "" {
		query += " WHERE entity_identity = ?"
		args = append(args, identity)
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapIO("query events", s.path, err)
	}
	defer func() { _ = rows.Close() }()

	var out []history.Event
	for rows.Next() {
		var (
			e       history.Event
			ts, typ string
			details string
		)
		if err := rows.Scan(&e.ID, &ts, &e.EntityIdentity, &typ, &e.Actor,
			&e.StatusBefore, &e.StatusAfter, &e.Summary, &details); err != nil {
			return nil, errors.WrapIO("scan event", s.path, err)
		}
		e.Type = history.EventType(typ)
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, errors.WrapParse("json", "details", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO("query events", s.path, err)
	}
	return out, nil
}

// UpsertSummary implements history.Store. The read and write run in one
// transaction.
func (s *Store) UpsertSummary(ctx context.Context, identity string, u history.SummaryUpdate, now utc.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIO("begin", s.path, err)
	}
	defer func() { _ = tx.Rollback() }()

	current, ok, err := readSummary(ctx, tx, identity)
	if err != nil {
		return err
	}
	if !ok {
		current = history.Summary{Identity: identity, Created: now}
	}
	next := u.Apply(current)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO summaries (identity, status, remote_ref, fingerprint,
		                       created, last_refresh, last_sync, last_push)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			status = excluded.status,
			remote_ref = excluded.remote_ref,
			fingerprint = excluded.fingerprint,
			last_refresh = excluded.last_refresh,
			last_sync = excluded.last_sync,
			last_push = excluded.last_push`,
		next.Identity, next.Status, next.RemoteRef, next.Fingerprint,
		formatTime(next.Created), formatTime(next.LastRefresh),
		formatTime(next.LastSync), formatTime(next.LastPush),
	)
	if err != nil {
		return errors.WrapIO("upsert summary", s.path, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapIO("commit", s.path, err)
	}
	return nil
}

// ReadSummary implements history.Store.
func (s *Store) ReadSummary(ctx context.Context, identity string) (history.Summary, bool, error) {
	return readSummary(ctx, s.db, identity)
}

// Summaries implements history.Store, ordered by identity.
func (s *Store) Summaries(ctx context.Context) ([]history.Summary, error) {
	rows, err := s.db.QueryContext(ctx, summarySelect+" ORDER BY identity")
	if err != nil {
		return nil, errors.WrapIO("query summaries", s.path, err)
	}
	defer func() { _ = rows.Close() }()

	var out []history.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO("query summaries", s.path, err)
	}
	return out, nil
}

const summarySelect = `SELECT identity, status, remote_ref, fingerprint,
                              created, last_refresh, last_sync, last_push
                       FROM summaries`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func readSummary(ctx context.Context, q queryer, identity string) (history.Summary, bool, error) {
	sum, err := scanSummary(q.QueryRowContext(ctx, summarySelect+" WHERE identity = ?", identity))
	if errors.Is(err, sql.ErrNoRows) {
		return history.Summary{}, false, nil
	}
	if err != nil {
		return history.Summary{}, false, err
	}
	return sum, true, nil
}

func scanSummary(row scanner) (history.Summary, error) {
	var (
		sum                                  history.Summary
		created, refresh, lastSync, lastPush string
	)
	if err := row.Scan(&sum.Identity, &sum.Status, &sum.RemoteRef, &sum.Fingerprint,
		&created, &refresh, &lastSync, &lastPush); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sum, err
		}
		return sum, errors.WrapIO("scan summary", "summaries", err)
	}
	var err error
	for _, f := range []struct {
		dst *utc.Time
		raw string
	}{
		{&sum.Created, created},
		{&sum.LastRefresh, refresh},
		{&sum.LastSync, lastSync},
		{&sum.LastPush, lastPush},
	} {
		if *f.dst, err = parseTime(f.raw); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// formatTime stores zero times as the empty string.
func formatTime(t utc.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (utc.Time, error) {
	if raw == "" {
		return utc.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return utc.Time{}, errors.WrapParse("time", raw, err)
	}
	return utc.New(t), nil
}

var _ history.Store = (*Store)(nil)
