// Package constants provides shared constants used throughout the bomsync codebase.
// This includes timeouts, pacing delays, file permissions, and default column
// names that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the PLM API
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout bounds shutdown once a command has returned
	ShutdownTimeout = 5 * time.Second
)

// Pacing constants for the remote BOM API
const (
	// DefaultInterCallDelay is the fixed pause between consecutive line
	// mutations during a push. It is not adaptive.
	DefaultInterCallDelay = 150 * time.Millisecond

	// DefaultSequenceStep multiplies the one-based line position to produce
	// the BOM sequence number sent on create.
	DefaultSequenceStep = 1

	// DefaultVerifyAttempts is how many times a newly created item is looked
	// up before verification gives up.
	DefaultVerifyAttempts = 3

	// DefaultVerifyInitialDelay is the first backoff between verification
	// lookups; it doubles after each miss.
	DefaultVerifyInitialDelay = 500 * time.Millisecond

	// MaxVerifyDelay caps the verification backoff.
	MaxVerifyDelay = 10 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like session tokens (rw-------)
	SecureFilePermissions = 0600
)

// Default tabular column names. Lookup is case-insensitive and falls back to
// fuzzy matching when a sheet uses different wording.
const (
	ColumnLevel       = "Level"
	ColumnItemNumber  = "Item Number"
	ColumnQuantity    = "Qty"
	ColumnCategory    = "Category"
	ColumnName        = "Name"
	ColumnDescription = "Description"
	ColumnLifecycle   = "Lifecycle"
)

// Path constants
const (
	// DefaultStateDir is the default directory for local state (history DB, transaction files)
	DefaultStateDir = "~/.bomsync"

	// DefaultHistoryFile is the SQLite history database name inside the state dir
	DefaultHistoryFile = "history.db"

	// DefaultConfigName is the config file base name searched in $HOME and the working dir
	DefaultConfigName = ".bomsync"

	// DefaultTransactionsDir holds saved transaction contexts inside the state dir
	DefaultTransactionsDir = "transactions"

	// EnvPrefix prefixes every environment variable read by the CLI
	EnvPrefix = "BOMSYNC"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"

	// TimeFormatFilename is the format used in generated filenames
	TimeFormatFilename = "20060102-150405"
)

// Actor names recorded on history events raised by the system itself.
const (
	ActorSystem = "bomsync"
)
