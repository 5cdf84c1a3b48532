// Package logging provides the engine's structured logger: a
// zerolog.Logger wrapped with the same prefix/verbose/writer knobs the
// teacher's console logger exposed, rendered through zerolog's console
// writer with color autodetected via go-isatty/go-colorable when writing
// to a terminal.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Config configures the engine logger.
type Config struct {
	// Component is attached to every event as a "component" field,
	// mirroring the teacher's per-logger prefix.
	Component string
	// Verbose includes debug-level events; otherwise they're dropped.
	Verbose bool
	// Writer is the destination for log output (defaults to stdout).
	Writer io.Writer
	// JSON emits newline-delimited JSON instead of the human-readable
	// console format; useful once logs are shipped off-box.
	JSON bool
}

// New builds a zerolog.Logger per cfg. A nil Writer defaults to a
// color-aware stdout: colorable.NewColorableStdout under a real terminal,
// the raw os.Stdout otherwise (colorable special-cases ANSI handling on
// Windows and is a no-op passthrough elsewhere).
func New(cfg Config) zerolog.Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = defaultWriter()
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}

	var out io.Writer = writer
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05.000"}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Component != "" {
		logger = logger.With().Str("component", cfg.Component).Logger()
	}
	return logger
}

func defaultWriter() io.Writer {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return colorable.NewColorableStdout()
	}
	return os.Stdout
}
