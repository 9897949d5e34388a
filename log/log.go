// Package log is the process-wide logger: a thin facade over logrus so that
// call sites do not import logrus directly.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

type Level logrus.Level

const (
	PanicLevel = Level(logrus.PanicLevel)
	FatalLevel = Level(logrus.FatalLevel)
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
	TraceLevel = Level(logrus.TraceLevel)
)

// Fields are structured key/value pairs attached to an entry.
type Fields = logrus.Fields

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.Formatter = &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
}

// SetLevel sets the minimum level written.
func SetLevel(level Level) {
	Logger.SetLevel(logrus.Level(level))
}

// ParseLevel maps "debug", "info", "warn", ... to a Level.
func ParseLevel(s string) (Level, error) {
	l, err := logrus.ParseLevel(s)
	return Level(l), err
}

// SetOutput redirects the log output, e.g. to stderr for stdio servers.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSON switches to the JSON formatter.
func SetJSON() {
	Logger.Formatter = &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
}

// WithFields returns an entry carrying fields.
func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

func WithField(key string, value any) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithError returns an entry carrying err.
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

func Logf(level Level, fmt string, args ...any) {
	Logger.Logf(logrus.Level(level), fmt, args...)
}
func Log(level Level, args ...any) {
	Logger.Logln(logrus.Level(level), args...)
}

func Debugf(fmt string, args ...any) {
	Logger.Debugf(fmt, args...)
}
func Debug(args ...any) {
	Logger.Debugln(args...)
}

func Infof(fmt string, args ...any) {
	Logger.Infof(fmt, args...)
}
func Info(args ...any) {
	Logger.Infoln(args...)
}

func Warnf(fmt string, args ...any) {
	Logger.Warnf(fmt, args...)
}
func Warn(args ...any) {
	Logger.Warnln(args...)
}

func Errorf(fmt string, args ...any) {
	Logger.Errorf(fmt, args...)
}
func Error(args ...any) {
	Logger.Errorln(args...)
}

func Fatalf(fmt string, args ...any) {
	Logger.Fatalf(fmt, args...)
}
func Fatal(args ...any) {
	Logger.Fatalln(args...)
}
