// Package logging provides structured logging for bomsync using zerolog.
// Console output is used when stderr is a terminal, JSON otherwise.
//
// Components never hold their own logger; they pull one from the context so
// that entity and operation fields set by the caller follow the call chain:
//
//	ctx = logging.WithEntity(ctx, "RACK-001")
//	ctx = logging.WithOperation(ctx, "push")
//	logging.FromContext(ctx).Info().Int("lines", 12).Msg("Pushing BOM")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentstation/bomsync/pkg/constants"
)

// Config selects level, encoding and destination of a logger.
type Config struct {
	// Level is trace, debug, info, warn or error. Unknown values mean info.
	Level string

	// Format is json, console, or auto (console on a terminal).
	Format string

	// Output is stderr, stdout, discard, or a file path opened for append.
	Output string

	// NoColor disables color in console output.
	NoColor bool

	// AddCaller includes file:line. It is implied at debug and below.
	AddCaller bool

	// Fields are attached to every entry.
	Fields map[string]any
}

// DefaultConfig reads BOMSYNC_LOG_LEVEL and NO_COLOR.
func DefaultConfig() *Config {
	level := os.Getenv(constants.EnvPrefix + "_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	return &Config{
		Level:   level,
		Format:  "auto",
		Output:  "stderr",
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

var (
	mu            sync.RWMutex
	defaultLogger = NewLoggerFromConfig(DefaultConfig())
)

// Default returns the process-wide logger used when a context carries none.
func Default() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := defaultLogger
	return &l
}

// SetDefault replaces the process-wide logger, including zerolog's global.
func SetDefault(logger zerolog.Logger) {
	mu.Lock()
	defaultLogger = logger
	mu.Unlock()
	log.Logger = logger
}

// Warn starts a warning on the default logger, for code without a context.
func Warn() *zerolog.Event {
	return Default().Warn()
}

// NewLoggerFromConfig builds a logger; a nil cfg means DefaultConfig.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := parseLevel(cfg.Level)
	logCtx := zerolog.New(writer(cfg)).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		logCtx = logCtx.Caller()
	}
	for k, v := range cfg.Fields {
		logCtx = addField(logCtx, k, v)
	}
	return logCtx.Logger()
}

func writer(cfg *Config) io.Writer {
	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		out = io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
		if err != nil {
			out = os.Stderr
		} else {
			out = f
		}
	}

	console := false
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		console = true
	case "", "auto":
		if f, ok := out.(*os.File); ok {
			console = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	if !console {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: cfg.NoColor}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}

func addField(ctx zerolog.Context, key string, value any) zerolog.Context {
	switch v := value.(type) {
	case string:
		return ctx.Str(key, v)
	case int:
		return ctx.Int(key, v)
	case int64:
		return ctx.Int64(key, v)
	case float64:
		return ctx.Float64(key, v)
	case bool:
		return ctx.Bool(key, v)
	case time.Duration:
		return ctx.Dur(key, v)
	case error:
		if key == "error" || key == "err" {
			return ctx.Err(v)
		}
		return ctx.Str(key, v.Error())
	default:
		return ctx.Interface(key, v)
	}
}
