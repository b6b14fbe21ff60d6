package bomsync

import (
	"time"

	"github.com/agentstation/bomsync/internal/tabular"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/sync"
	"github.com/agentstation/bomsync/pkg/tree"
)

// Config is the complete configuration of a Reconciler. It is built once,
// usually by the CLI from viper, and passed to New; no component reads
// configuration on its own.
type Config struct {
	PLM         PLMConfig         `mapstructure:"plm"`
	Sync        sync.Options      `mapstructure:"sync"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	History     HistoryConfig     `mapstructure:"history"`
	Sheet       SheetConfig       `mapstructure:"sheet"`
	S3          tabular.S3Config  `mapstructure:"s3"`
	Columns     tree.Config       `mapstructure:"columns"`

	// Actor is recorded on history events that do not name one.
	Actor string `mapstructure:"actor"`
}

// PLMConfig locates and authenticates the PLM REST API. A session ID takes
// precedence over an API key.
type PLMConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	SessionID string        `mapstructure:"session_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PageSize  int           `mapstructure:"page_size"`
}

// TransactionConfig controls creation transactions.
type TransactionConfig struct {
	VerifyAttempts     int           `mapstructure:"verify_attempts"`
	VerifyInitialDelay time.Duration `mapstructure:"verify_initial_delay"`
}

// HistoryConfig locates the history database. An empty path keeps history
// in memory for the lifetime of the process.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// SheetConfig locates the BOM sheet: a local CSV path or an s3:// URL.
type SheetConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		PLM: PLMConfig{
			Timeout: constants.DefaultHTTPTimeout,
		},
		Sync: *sync.Defaults(),
		Transaction: TransactionConfig{
			VerifyAttempts:     constants.DefaultVerifyAttempts,
			VerifyInitialDelay: constants.DefaultVerifyInitialDelay,
		},
		Columns: tree.DefaultConfig(),
		Actor:   constants.ActorSystem,
	}
}

// Validate checks values that can be checked without any remote call.
func (c Config) Validate() error {
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if c.Transaction.VerifyAttempts < 0 {
		return errors.NewConfigError("transaction", "verify_attempts must not be negative", nil)
	}
	if c.Transaction.VerifyInitialDelay < 0 {
		return errors.NewConfigError("transaction", "verify_initial_delay must not be negative", nil)
	}
	if c.PLM.Timeout < 0 {
		return errors.NewConfigError("plm", "timeout must not be negative", nil)
	}
	return nil
}

func (c Config) syncOptions() []sync.Option {
	return []sync.Option{
		sync.WithInterCallDelay(c.Sync.InterCallDelay),
		sync.WithSequenceStep(c.Sync.SequenceStep),
		sync.WithSideChannelAttributes(c.Sync.SideChannelAttributes...),
		sync.WithDryRun(c.Sync.DryRun),
	}
}
