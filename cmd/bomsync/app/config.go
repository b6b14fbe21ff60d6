package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables, .env files and flags.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string

	// StateDir holds the history database and saved transactions.
	StateDir string

	// MetricsTextfile receives a Prometheus textfile on shutdown.
	MetricsTextfile string

	// Reconciler is passed to bomsync.New unchanged.
	Reconciler bomsync.Config
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. BOMSYNC_* environment variables
//  3. .env and .env.local files
//  4. Config file (configFile, or .bomsync.yaml in $HOME or the working dir)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "failed to read config file", err)
		}
	}

	config := &Config{
		Verbose:         v.GetBool("verbose"),
		Quiet:           v.GetBool("quiet"),
		NoColor:         v.GetBool("no_color"),
		Format:          v.GetString("format"),
		ConfigFile:      v.ConfigFileUsed(),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		LogOutput:       v.GetString("log.output"),
		StateDir:        expandHome(v.GetString("state_dir")),
		MetricsTextfile: v.GetString("metrics.textfile"),
	}

	if err := v.Unmarshal(&config.Reconciler); err != nil {
		return nil, errors.NewConfigError("config", "failed to decode configuration", err)
	}
	if config.Reconciler.History.Path == "" && config.StateDir != "" {
		config.Reconciler.History.Path = filepath.Join(config.StateDir, constants.DefaultHistoryFile)
	}

	return config, nil
}

// setDefaults registers every key so that AutomaticEnv can override keys
// that no config file mentions.
func setDefaults(v *viper.Viper) {
	d := bomsync.DefaultConfig()

	v.SetDefault("format", "")
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("state_dir", constants.DefaultStateDir)
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("plm.base_url", d.PLM.BaseURL)
	v.SetDefault("plm.api_key", d.PLM.APIKey)
	v.SetDefault("plm.session_id", d.PLM.SessionID)
	v.SetDefault("plm.timeout", d.PLM.Timeout)
	v.SetDefault("plm.page_size", d.PLM.PageSize)

	v.SetDefault("sync.inter_call_delay", d.Sync.InterCallDelay)
	v.SetDefault("sync.sequence_step", d.Sync.SequenceStep)
	v.SetDefault("sync.side_channel_attributes", d.Sync.SideChannelAttributes)

	v.SetDefault("transaction.verify_attempts", d.Transaction.VerifyAttempts)
	v.SetDefault("transaction.verify_initial_delay", d.Transaction.VerifyInitialDelay)

	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("sheet.path", d.Sheet.Path)

	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.access_key_id", d.S3.AccessKeyID)
	v.SetDefault("s3.secret_access_key", d.S3.SecretAccessKey)
	v.SetDefault("s3.use_path_style", d.S3.UsePathStyle)

	v.SetDefault("columns.level", d.Columns.LevelColumn)
	v.SetDefault("columns.item_number", d.Columns.ItemNumberColumn)
	v.SetDefault("columns.quantity", d.Columns.QuantityColumn)
	v.SetDefault("columns.category", d.Columns.CategoryColumn)
	v.SetDefault("columns.name", d.Columns.NameColumn)
	v.SetDefault("columns.description", d.Columns.DescriptionColumn)
	v.SetDefault("columns.lifecycle", d.Columns.LifecycleColumn)
	v.SetDefault("columns.indent", d.Columns.Indent)
	v.SetDefault("columns.ignore", d.Columns.IgnoreColumns)

	v.SetDefault("actor", d.Actor)
}

// UpdateFromFlags updates config values from parsed command flags.
// Flag values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// TransactionsDir is where transaction contexts are saved by default.
func (c *Config) TransactionsDir() string {
	return filepath.Join(c.StateDir, constants.DefaultTransactionsDir)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
