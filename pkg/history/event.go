// Package history keeps the append-only audit trail of reconciliation
// events and the mutable per-entity summary record.
package history

import (
	"maps"

	"github.com/agentstation/utc"
)

// EventType classifies a history event.
type EventType string

// Event types.
const (
	EventStatusChange EventType = "STATUS_CHANGE"
	EventPush         EventType = "PUSH"
	EventPushFailed   EventType = "PUSH_FAILED"
	EventCreate       EventType = "CREATE"
	EventRollback     EventType = "ROLLBACK"
	EventPull         EventType = "PULL"
	EventOverride     EventType = "OVERRIDE"
)

// EventTypes lists every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventStatusChange, EventPush, EventPushFailed, EventCreate,
		EventRollback, EventPull, EventOverride,
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range EventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Event is one immutable history entry.
type Event struct {
	ID             string            `json:"id" yaml:"id"`
	Timestamp      utc.Time          `json:"timestamp" yaml:"timestamp"`
	EntityIdentity string            `json:"entity" yaml:"entity"`
	Type           EventType         `json:"type" yaml:"type"`
	Actor          string            `json:"actor" yaml:"actor"`
	StatusBefore   string            `json:"status_before,omitempty" yaml:"status_before,omitempty"`
	StatusAfter    string            `json:"status_after,omitempty" yaml:"status_after,omitempty"`
	Summary        string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Details        map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

// clone returns a copy that shares nothing mutable with e.
func (e Event) clone() Event {
	if e.Details != nil {
		e.Details = maps.Clone(e.Details)
	}
	return e
}

// Summary is the mutable per-entity record.
type Summary struct {
	Identity    string   `json:"identity" yaml:"identity"`
	Status      string   `json:"status" yaml:"status"`
	RemoteRef   string   `json:"remote_ref,omitempty" yaml:"remote_ref,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Created     utc.Time `json:"created" yaml:"created"`
	LastRefresh utc.Time `json:"last_refresh,omitzero" yaml:"last_refresh,omitempty"`
	LastSync    utc.Time `json:"last_sync,omitzero" yaml:"last_sync,omitempty"`
	LastPush    utc.Time `json:"last_push,omitzero" yaml:"last_push,omitempty"`
}

// SummaryUpdate is a partial summary; nil fields are left untouched.
type SummaryUpdate struct {
	Status      *string
	RemoteRef   *string
	Fingerprint *string
	LastRefresh *utc.Time
	LastSync    *utc.Time
	LastPush    *utc.Time
}

// Empty reports whether the update changes nothing.
func (u SummaryUpdate) Empty() bool {
	return u.Status == nil && u.RemoteRef == nil && u.Fingerprint == nil &&
		u.LastRefresh == nil && u.LastSync == nil && u.LastPush == nil
}

// Apply merges u into s.
func (u SummaryUpdate) Apply(s Summary) Summary {
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.RemoteRef != nil {
		s.RemoteRef = *u.RemoteRef
	}
	if u.Fingerprint != nil {
		s.Fingerprint = *u.Fingerprint
	}
	if u.LastRefresh != nil {
		s.LastRefresh = *u.LastRefresh
	}
	if u.LastSync != nil {
		s.LastSync = *u.LastSync
	}
	if u.LastPush != nil {
		s.LastPush = *u.LastPush
	}
	return s
}
