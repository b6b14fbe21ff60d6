// Package app provides the application context and dependency management
// for the bomsync CLI: configuration, logging, and the lazily created
// Reconciler shared by every command.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/status"
)

// build identifies the binary.
type build struct {
	version, commit, date, builtBy string
}

// App carries what every command shares: configuration, the logger, the
// terminal streams and one Reconciler built on first use.
type App struct {
	build  build
	config *Config
	logger *zerolog.Logger
	in     io.Reader
	out    io.Writer

	mu             sync.Mutex
	reconciler     bomsync.Reconciler
	reconcilerOpts []bomsync.Option
}

// New loads the configuration from the environment and the default config
// file locations, then applies opts.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	logger := NewLogger(config)

	a := &App{
		build:  build{version: version, commit: commit, date: date, builtBy: builtBy},
		config: config,
		logger: &logger,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) Version() string { return a.build.version }
func (a *App) Commit() string  { return a.build.commit }
func (a *App) Date() string    { return a.build.date }
func (a *App) BuiltBy() string { return a.build.builtBy }

// Config returns the loaded configuration.
func (a *App) Config() *Config { return a.config }

func (a *App) Logger() *zerolog.Logger { return a.logger }

func (a *App) OutputFormat() string { return a.config.Format }

func (a *App) StateDir() string { return a.config.StateDir }

func (a *App) In() io.Reader { return a.in }

func (a *App) Out() io.Writer { return a.out }

// Reconciler returns the reconciler, creating it on first use. Transitions
// are logged through the application logger.
func (a *App) Reconciler(ctx context.Context) (bomsync.Reconciler, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reconciler != nil {
		return a.reconciler, nil
	}

	r, err := bomsync.New(ctx, a.config.Reconciler, a.reconcilerOpts...)
	if err != nil {
		return nil, errors.WrapResource("create", "reconciler", "", err)
	}

	logger := a.logger
	r.OnStatusChanged(func(t status.Transition) {
		logger.Info().
			Str("entity", t.Identity).
			Str("from", string(t.From)).
			Str("to", string(t.To)).
			Str("reason", t.Reason).
			Msg("Status changed")
	})

	a.reconciler = r
	return r, nil
}

// Shutdown writes the metrics textfile, when configured, and closes the
// reconciler.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	r := a.reconciler
	a.reconciler = nil
	a.mu.Unlock()

	if r == nil {
		return nil
	}

	var errs []error
	if err := r.Metrics().WriteTextfile(a.config.MetricsTextfile); err != nil {
		errs = append(errs, err)
	}
	if err := r.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Option customizes an App built by New.
type Option func(*App) error

// WithConfig replaces the loaded configuration and rebuilds the logger from it.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		logger := NewLogger(config)
		a.logger = &logger
		return nil
	}
}

// WithLogger replaces the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithReconciler installs a ready Reconciler instead of building one.
func WithReconciler(r bomsync.Reconciler) Option {
	return func(a *App) error {
		a.reconciler = r
		return nil
	}
}

// WithReconcilerOptions passes options to bomsync.New when the reconciler
// is created.
func WithReconcilerOptions(opts ...bomsync.Option) Option {
	return func(a *App) error {
		a.reconcilerOpts = append(a.reconcilerOpts, opts...)
		return nil
	}
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) error {
		a.in = in
		a.out = out
		return nil
	}
}

var _ appcontext.Interface = (*App)(nil)
