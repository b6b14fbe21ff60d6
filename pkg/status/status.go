// Package status derives and transitions the per-entity sync status.
package status

import (
	"fmt"
	"strings"

	"github.com/agentstation/bomsync/pkg/differ"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/history"
)

// Status is the sync status of one entity.
type Status string

// Statuses.
const (
	// Placeholder means the entity does not exist remotely yet.
	Placeholder Status = "PLACEHOLDER"
	// Synced means local and remote agree.
	Synced Status = "SYNCED"
	// LocalModified means the local lines changed since the last sync.
	LocalModified Status = "LOCAL_MODIFIED"
	// ArenaModified means the remote BOM drifted from the local lines.
	ArenaModified Status = "ARENA_MODIFIED"
	// Error is sticky until the next push or a manual override.
	Error Status = "ERROR"
)

// All returns every status.
func All() []Status {
	return []Status{Placeholder, Synced, LocalModified, ArenaModified, Error}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range All() {
		if s == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// Parse converts a user-supplied status name, case-insensitively.
func Parse(name string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", errors.NewValidationError("status", name,
			fmt.Sprintf("unknown status %q (want one of %v)", name, All()))
	}
	return s, nil
}

// EntityRecord is the stored per-entity record.
type EntityRecord = history.Summary

// Classify decides the status of an entity that exists remotely. A changed
// fingerprint wins over remote drift; remote drift is only consulted when the
// local lines are unchanged.
func Classify(stored, current string, cs *differ.Changeset) Status {
	if stored != current {
		return LocalModified
	}
	if cs.HasChanges() {
		return ArenaModified
	}
	return Synced
}
