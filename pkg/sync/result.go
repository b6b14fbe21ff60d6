package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/bomsync/pkg/bom"
)

// Result represents the outcome of a push.
type Result struct {
	EntityRef string `json:"entity_ref" yaml:"entity_ref"`

	// Delete phase
	Existing       int           `json:"existing" yaml:"existing"`
	Deleted        int           `json:"deleted" yaml:"deleted"`
	DeleteFailures []LineFailure `json:"delete_failures,omitempty" yaml:"delete_failures,omitempty"`

	// Create phase
	Created []bom.RemoteLine `json:"created" yaml:"created"`

	DryRun   bool          `json:"dry_run" yaml:"dry_run"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// LineFailure records a remote line that could not be deleted.
type LineFailure struct {
	LineRef    string `json:"line_ref" yaml:"line_ref"`
	ItemNumber string `json:"item_number" yaml:"item_number"`
	Error      string `json:"error" yaml:"error"`
}

// HasFailures returns true if any delete was skipped.
func (r *Result) HasFailures() bool {
	return len(r.DeleteFailures) > 0
}

// Summary returns a human-readable summary of the push.
func (r *Result) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("%s: would replace %d remote lines (dry run)", r.EntityRef, r.Existing)
	}
	parts := []string{
		fmt.Sprintf("%d deleted", r.Deleted),
		fmt.Sprintf("%d created", len(r.Created)),
	}
	if r.HasFailures() {
		parts = append(parts, fmt.Sprintf("%d delete failures", len(r.DeleteFailures)))
	}
	return fmt.Sprintf("%s: %s", r.EntityRef, strings.Join(parts, ", "))
}
