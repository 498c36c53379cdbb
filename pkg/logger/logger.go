// Package logger provides the global logger used across webpilot.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log     = newDefault()
	logFile *os.File
	mu      sync.Mutex
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// Init directs log output to the given file path. An empty path logs to stderr.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	if logPath == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	logFile = f
	log.SetOutput(f)
	return nil
}

// SetVerbose enables debug-level output.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	log.SetOutput(io.Discard)
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	log.Infof(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	log.Warnf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	log.Errorf(format, v...)
}

// WithFields returns a structured entry for call-site fields, e.g.
// logger.WithFields("method", "dom.query", "elapsed", d).Debug("call done").
func WithFields(kv ...interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}
	return log.WithFields(fields)
}
