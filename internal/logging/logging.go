// logging.go - Structured logging with a separate audit sink.
//
// The same zerolog logger also receives gnark's compile and prove logs.
package logging

import (
	"io"
	"os"
	"time"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	Level     string
	File      string
	AuditFile string
	// Console receives human readable output; nil means stderr.
	Console io.Writer
	// Gnark routes the proving library's logs through this logger.
	Gnark bool
}

// Logger wraps a zerolog logger and an optional audit logger.
type Logger struct {
	zerolog.Logger

	audit   *zerolog.Logger
	closers []io.Closer
}

// New builds a logger writing to the console and, when set, a log file.
func New(opts Options) (*Logger, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}}

	l := &Logger{}
	if opts.File != "" {
		f, err := openAppend(opts.File)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open log file")
		}
		l.closers = append(l.closers, f)
		writers = append(writers, f)
	}
	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()

	if opts.AuditFile != "" {
		f, err := openAppend(opts.AuditFile)
		if err != nil {
			l.Close()
			return nil, errors.Wrap(err, "failed to open audit file")
		}
		l.closers = append(l.closers, f)
		audit := zerolog.New(f).With().Timestamp().Str("stream", "audit").Logger()
		l.audit = &audit
	}

	if opts.Gnark {
		gnarklogger.Set(l.With().Str("component", "gnark").Logger())
	} else {
		gnarklogger.Disable()
	}
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// Audit records a security relevant event. Never pass secret material.
func (l *Logger) Audit(event string, fields map[string]interface{}) {
	if l.audit == nil {
		return
	}
	l.audit.Log().Str("event", event).Fields(fields).Send()
}

// Close closes the log files.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}
