package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const filePerm = 0o640

// Options describes where and how much to log.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	// Path appends to a file instead of writing to Writer.
	Path string
	// Writer defaults to stderr. Standard output belongs to the MCP
	// protocol in stdio mode and is never used.
	Writer io.Writer
	// Quiet raises the level to warn unless Level is debug. Used in stdio
	// mode where the parent process owns the terminal.
	Quiet bool
}

// Logger is a configured logger plus the file it may hold open.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New builds a logger from opts.
func New(opts Options) (*Logger, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	if opts.Quiet && level != zerolog.DebugLevel && level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}

	l := &Logger{}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
		if err != nil {
			return nil, fmt.Errorf("cannot open log file %s: %w", opts.Path, err)
		}
		l.file = f
		w = zerolog.SyncWriter(f)
	}

	switch opts.Format {
	case "json", "":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opts.Path != ""}
	default:
		l.Close()
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	l.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
