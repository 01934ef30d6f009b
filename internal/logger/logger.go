// Package logger builds the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout.  Production uses JSON so log
// shippers can index the fields; every other environment gets text.  An
// unknown level falls back to info.
func New(env, level string) *logrus.Logger {
	return NewWithOutput(env, level, os.Stdout)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(env, level string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	if strings.EqualFold(env, "prod") || strings.EqualFold(env, "production") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
