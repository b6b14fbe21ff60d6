package appcontext

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/bomsync"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding field.
// If a field is nil, the method returns a default value.
type Mock struct {
	ReconcilerValue bomsync.Reconciler
	ReconcilerErr   error
	LoggerFunc      func() *zerolog.Logger
	Format          string
	State           string
	Input           string
	Output          bytes.Buffer
}

// Reconciler returns ReconcilerValue and ReconcilerErr.
func (m *Mock) Reconciler(_ context.Context) (bomsync.Reconciler, error) {
	return m.ReconcilerValue, m.ReconcilerErr
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format or "table".
func (m *Mock) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "table"
}

// StateDir returns State.
func (m *Mock) StateDir() string {
	return m.State
}

// In returns a reader over Input.
func (m *Mock) In() io.Reader {
	return strings.NewReader(m.Input)
}

// Out returns the Output buffer.
func (m *Mock) Out() io.Writer {
	return &m.Output
}

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

var _ Interface = (*Mock)(nil)
