// ABOUTME: Structured logger implementation on logrus with optional file rotation
// ABOUTME: Satisfies interfaces.Logger for the asset service and its stores

package standard

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger
type Options struct {
	// Level is a logrus level name (debug, info, warn, error)
	Level string

	// Format is "json" or "text"
	Format string

	// File, when set, receives log output through a rotating writer
	File string
}

// StandardLogger implements the Logger interface using logrus
type StandardLogger struct {
	entry *logrus.Logger
}

// NewStandardLogger creates an info-level text logger writing to stdout
func NewStandardLogger() *StandardLogger {
	logger, _ := NewLogger(Options{})
	return logger
}

// NewLogger creates a logger from opts. An unknown level falls back to
// info and is reported as an error alongside the usable logger.
func NewLogger(opts Options) (*StandardLogger, error) {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if opts.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	var err error
	level := logrus.InfoLevel
	if opts.Level != "" {
		level, err = logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
	}
	log.SetLevel(level)

	return &StandardLogger{entry: log}, err
}

// SetOutput redirects log output
func (l *StandardLogger) SetOutput(w io.Writer) {
	l.entry.SetOutput(w)
}

// Debug logs a debug message
func (l *StandardLogger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

// Info logs an info message
func (l *StandardLogger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

// Warn logs a warning message
func (l *StandardLogger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Warn(msg)
}

// Error logs an error message
func (l *StandardLogger) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Error(msg)
}
