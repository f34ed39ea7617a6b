// Package logging adapts github.com/sirupsen/logrus to the
// application/logging.Logger port. Grounded on the teacher's
// infrastructure/logging/log_logger.go (a one-method wrapper over the
// standard library's log package, constructed with a single NewX
// function) — generalized here to a leveled logger since the spec
// distinguishes "log at error level" from routine/debug messages (§7) and
// names a "-v (verbose)" flag (§6).
package logging

import (
	"os"

	"github.com/sirupsen/logrus"

	"shadowrelay/application/logging"
)

// LogrusLogger implements application/logging.Logger over a
// *logrus.Logger writing to stderr, per spec §1 "syslog/stderr logging".
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger builds a Logger. When verbose is true, debug-level
// messages are emitted; otherwise only info and above.
func NewLogrusLogger(verbose bool) logging.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewLogrusLoggerWithFields returns a logger carrying structured fields
// (e.g. peer address), useful for per-connection child loggers.
func NewLogrusLoggerWithFields(base logging.Logger, fields map[string]any) logging.Logger {
	ll, ok := base.(*LogrusLogger)
	if !ok {
		return base
	}
	return &LogrusLogger{entry: ll.entry.WithFields(fields)}
}

func (l *LogrusLogger) Printf(format string, v ...any) {
	l.entry.Infof(format, v...)
}

func (l *LogrusLogger) Debugf(format string, v ...any) {
	l.entry.Debugf(format, v...)
}

func (l *LogrusLogger) Errorf(format string, v ...any) {
	l.entry.Errorf(format, v...)
}
