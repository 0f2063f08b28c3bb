package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Setup builds the process logger. format is "json" (default) or "text";
// level is any logrus level name and falls back to info.
func Setup(level, format string) *logrus.Logger {
	return newLogger(os.Stdout, level, format)
}

func newLogger(out io.Writer, level, format string) *logrus.Logger {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}

	var formatter logrus.Formatter = &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyLevel: "loglevel",
		},
	}
	if strings.EqualFold(format, "text") {
		formatter = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	}

	return &logrus.Logger{
		Out:       out,
		Formatter: formatter,
		Hooks:     make(logrus.LevelHooks),
		Level:     lvl,
	}
}

// Discard returns a logger that writes nowhere. Used by tests.
func Discard() *logrus.Logger {
	return newLogger(io.Discard, "panic", "json")
}
