// Package emoji provides symbol constants for CLI output.
package emoji

import "github.com/agentstation/bomsync/pkg/status"

// Symbol constants for CLI output.
const (
	// Success marks a completed operation or a synced entity.
	Success = "✓"

	// Error marks a failed operation or an entity in ERROR.
	Error = "✗"

	// Warning marks drift or a non-fatal problem.
	Warning = "!"

	// Pending marks an entity that exists only locally.
	Pending = "-"

	// Unknown marks an unrecognized state.
	Unknown = "?"

	// Info marks informational messages.
	Info = "i"
)

// ForStatus returns the symbol shown next to an entity status.
func ForStatus(s status.Status) string {
	switch s {
	case status.Synced:
		return Success
	case status.Error:
		return Error
	case status.LocalModified, status.ArenaModified:
		return Warning
	case status.Placeholder:
		return Pending
	default:
		return Unknown
	}
}
