// Package appcontext defines what a command may use from the running
// application, so commands can be tested against a Mock.
package appcontext

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/bomsync"
)

// Interface defines what commands need from the application. The App struct
// from cmd/bomsync/app implements it; tests use Mock.
type Interface interface {
	// Reconciler returns the reconciler, creating it lazily on first use.
	Reconciler(ctx context.Context) (bomsync.Reconciler, error)

	// Logger is the logger configured from flags and config.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// StateDir returns the directory holding local state such as saved
	// transaction contexts.
	StateDir() string

	// In is where confirmation prompts read answers from.
	In() io.Reader

	// Out is where command output is written.
	Out() io.Writer

	// Build information stamped at link time.
	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
