package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggerOptions describes the root logger of a binary.
type LoggerOptions struct {
	Level string
	// Format is "json" (default) or "console" for human-readable local output.
	Format     string
	Service    string
	InstanceID string
}

// NewLogger builds the root logger. Request, workflow and step loggers derive from it
// through zerolog.Ctx, so every entry carries the service and instance fields.
func NewLogger(opts LoggerOptions, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stdout
	}
	if strings.EqualFold(opts.Format, "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).
		Level(logLevel(opts.Level)).
		With().
		Timestamp().
		Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.InstanceID != "" {
		ctx = ctx.Str("instance_id", opts.InstanceID)
	}
	return ctx.Logger()
}

// logLevel accepts zerolog's level names plus "warning". Unknown or empty names mean info.
func logLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
