package obs

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel accepts the names printed by Level.String, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return Debug, nil
	case "INFO", "":
		return Info, nil
	case "WARN", "WARNING":
		return Warn, nil
	case "ERROR":
		return Error, nil
	default:
		return Info, fmt.Errorf("obs: unknown log level %q", s)
	}
}

// Logger is the diagnostic sink the call engine writes to.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Logf(level Level, format string, args ...interface{}) {}

// StdLogger adapts the standard library logger.
type StdLogger struct {
	L    *log.Logger
	Min  Level
	Pref string // optional prefix per log line
}

func (s StdLogger) Logf(level Level, format string, args ...interface{}) {
	if s.L == nil || level < s.Min {
		return
	}
	s.L.Printf("%s[%s] %s", s.Pref, level, fmt.Sprintf(format, args...))
}

// ZapLogger writes through a zap SugaredLogger.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger returns a Logger backed by l. A nil l discards everything.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{s: l.Sugar()}
}

func (z *ZapLogger) Logf(level Level, format string, args ...interface{}) {
	switch level {
	case Debug:
		z.s.Debugf(format, args...)
	case Info:
		z.s.Infof(format, args...)
	case Warn:
		z.s.Warnf(format, args...)
	default:
		z.s.Errorf(format, args...)
	}
}

// Sync flushes buffered zap entries.
func (z *ZapLogger) Sync() error { return z.s.Sync() }

// LogrusLogger writes through a logrus logger.
type LogrusLogger struct {
	L *logrus.Logger
}

// NewLogrusLogger returns a LogrusLogger writing text entries to w and
// dropping those below min.
func NewLogrusLogger(w io.Writer, min Level) LogrusLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrusLevel(min))
	return LogrusLogger{L: l}
}

func (l LogrusLogger) Logf(level Level, format string, args ...interface{}) {
	if l.L == nil {
		return
	}
	l.L.Logf(logrusLevel(level), format, args...)
}

func logrusLevel(level Level) logrus.Level {
	switch level {
	case Debug:
		return logrus.DebugLevel
	case Info:
		return logrus.InfoLevel
	case Warn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
