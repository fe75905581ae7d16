// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/cmkit/internal/env"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelFor maps the -v count to a level.
func LevelFor(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// logFile is the log file opened by the last Setup.
var logFile *os.File

// Setup configures the global logger for verbosity. Logs go to stderr and,
// when the state directory is writable, to cmkit.log inside it. The file
// opened by a previous Setup is closed.
func Setup(verbosity int) {
	Close()
	zerolog.SetGlobalLevel(LevelFor(verbosity))

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}}

	f, err := openLogFile()
	if err == nil {
		logFile = f
		writers = append(writers, f)
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open log file, logging to console only")
	}
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}
}

// Close closes the log file, if any. Later entries only reach stderr.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// GetLogger returns a logger tagged with component.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// LogCommand logs an external command about to run.
func LogCommand(logger zerolog.Logger, name string, args []string) {
	logger.Debug().Str("command", name).Strs("args", args).Msg("Executing command")
}

// LogOperationStart logs the start of an operation and returns a function
// logging its completion.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("Operation started")
	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}

// LogFilePath returns where Setup writes the log file.
func LogFilePath() (string, error) {
	dir, err := env.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cmkit.log"), nil
}

func openLogFile() (*os.File, error) {
	path, err := LogFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
