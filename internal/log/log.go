// Package log is the process-wide logger. It wraps logrus so every package
// logs through the same formatter and output, optionally rotated to a file.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var std = logrus.New()

// Options controls Setup.
type Options struct {
	Level  string // logrus level name; empty keeps the current level
	Format string // "text" or "json"
	File   string // rotate into this file in addition to stderr

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup configures the shared logger.
func Setup(opts Options) error {
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		std.SetLevel(lvl)
	}

	switch opts.Format {
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{})
	default:
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
		})
	}
	std.SetOutput(out)
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Logger returns the shared logrus logger.
func Logger() *logrus.Logger { return std }

// Entry returns a logger tagged with a component name.
func Entry(component string) *logrus.Entry {
	return std.WithField("component", component)
}

func WithField(key string, value any) *logrus.Entry { return std.WithField(key, value) }

func WithFields(fields logrus.Fields) *logrus.Entry { return std.WithFields(fields) }

func Debugf(format string, args ...any) { std.Debugf(format, args...) }

func Infof(format string, args ...any) { std.Infof(format, args...) }

func Warnf(format string, args ...any) { std.Warnf(format, args...) }

func Errorf(format string, args ...any) { std.Errorf(format, args...) }

func Fatalf(format string, args ...any) { std.Fatalf(format, args...) }
