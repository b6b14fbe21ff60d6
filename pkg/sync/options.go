// Package sync pushes a local BOM line set to the remote store with
// full-replace semantics: validate, delete every remote line, recreate.
package sync

import (
	"time"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Options controls a push.
type Options struct {
	// InterCallDelay is the fixed pause between consecutive remote mutations.
	InterCallDelay time.Duration `mapstructure:"inter_call_delay"`

	// SequenceStep spaces the sequence numbers of created lines.
	SequenceStep int `mapstructure:"sequence_step"`

	// SideChannelAttributes names line attributes forwarded with the create
	// call. Other attributes stay local.
	SideChannelAttributes []string `mapstructure:"side_channel_attributes"`

	// DryRun validates and lists the remote lines without mutating anything.
	DryRun bool `mapstructure:"-"`
}

// Option is a function that configures push Options.
type Option func(*Options)

// Defaults returns the default push options.
func Defaults() *Options {
	return &Options{
		InterCallDelay: constants.DefaultInterCallDelay,
		SequenceStep:   constants.DefaultSequenceStep,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks if the options are usable.
func (o *Options) Validate() error {
	if o.InterCallDelay < 0 {
		return &errors.ValidationError{
			Field:   "InterCallDelay",
			Value:   o.InterCallDelay,
			Message: "inter-call delay must be non-negative",
		}
	}
	if o.SequenceStep < 1 {
		return &errors.ValidationError{
			Field:   "SequenceStep",
			Value:   o.SequenceStep,
			Message: "sequence step must be at least 1",
		}
	}
	return nil
}

// WithInterCallDelay sets the pause between remote mutations.
func WithInterCallDelay(d time.Duration) Option {
	return func(o *Options) {
		o.InterCallDelay = d
	}
}

// WithSequenceStep sets the sequence number spacing.
func WithSequenceStep(step int) Option {
	return func(o *Options) {
		o.SequenceStep = step
	}
}

// WithSideChannelAttributes sets the attributes forwarded on create.
func WithSideChannelAttributes(names ...string) Option {
	return func(o *Options) {
		o.SideChannelAttributes = names
	}
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}
