package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger creates a logger writing JSON to logFile and, when console is
// true, text to stderr as well. The TUI passes console=false so log lines
// never land on the screen.
// Returns the logger and a cleanup function to close the file.
func SetupLogger(logFile string, level slog.Level, console bool) (*slog.Logger, func() error) {
	// Stderr handler (text for readability)
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		if !console {
			return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }
		}
		// Fall back to stderr-only if file fails
		logger := slog.New(stderrHandler)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		return logger, func() error { return nil }
	}

	// File handler (JSON for machine parsing)
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	})

	cleanup := func() error {
		return file.Close()
	}

	if !console {
		return slog.New(fileHandler), cleanup
	}
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler)), cleanup
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
}
