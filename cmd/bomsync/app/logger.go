package app

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/bomsync/pkg/logging"
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// NewLogger builds the CLI logger. An explicit --log-level (or
// BOMSYNC_LOG_LEVEL) beats -q, which beats -v. Caller information is added
// at debug and trace.
func NewLogger(config *Config) zerolog.Logger {
	level, warning := logLevel(config)

	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:     level,
		Format:    config.LogFormat,
		Output:    config.LogOutput,
		NoColor:   config.NoColor,
		AddCaller: level == "debug" || level == "trace",
	})
	if warning != "" {
		logger.Warn().Str("level", level).Msg(warning)
	}
	return logger
}

// logLevel resolves the effective level and, when the flags conflict or
// the level is unknown, a warning to log once the logger exists.
func logLevel(config *Config) (level, warning string) {
	switch {
	case config.LogLevel != "" && slices.Contains(validLogLevels, config.LogLevel):
		return config.LogLevel, ""
	case config.LogLevel != "":
		return "info", "Unknown log level " + config.LogLevel
	case config.Verbose && config.Quiet:
		return "warn", "Both --verbose and --quiet given"
	case config.Verbose:
		return "debug", ""
	case config.Quiet:
		return "warn", ""
	}
	return "info", ""
}
