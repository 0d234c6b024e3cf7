// Package logger configures the process-wide logrus output.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level and optional rotating file output.
type Config struct {
	Level      string
	OutputFile string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	// Quiet drops console output, used while the terminal display owns stdout.
	Quiet bool
}

// Init configures the global logrus logger. Packages log through
// logrus.WithField("component", ...) entries, which inherit this setup.
func Init(cfg Config) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stdout)
	}
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.OutputFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
	})
	switch len(writers) {
	case 0:
		logrus.SetOutput(io.Discard)
	case 1:
		logrus.SetOutput(writers[0])
	default:
		logrus.SetOutput(io.MultiWriter(writers...))
	}
	return nil
}
