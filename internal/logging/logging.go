package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// LevelTrace sits below slog.LevelDebug and is selected with the "trace"
// log level. No decoder logs at this level; decoded entries are listed at
// info level, and only with --list-files.
const LevelTrace = slog.LevelDebug - 4

// Setup configures the process-wide slog logger.
//
// Console records, including entry listings, go through tint on stderr;
// nothing is logged to stdout. If logOutputDir is non-empty, a timestamped JSON log
// file in that directory additionally receives every record.
func Setup(levelStr string, logOutputDir string) error {
	level := parseLogLevel(levelStr)

	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}),
	}

	if logOutputDir != "" {
		logFile, logFilePath, err := openLogFile(logOutputDir)
		if err != nil {
			return err
		}

		handlers = append(handlers,
			slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}))

		fmt.Fprintf(os.Stderr, "Logging to file: %s\n", logFilePath)
	}

	if len(handlers) == 1 {
		slog.SetDefault(slog.New(handlers[0]))
	} else {
		slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
	}

	return nil
}

// openLogFile creates a timestamped log file under dir, creating the
// directory first if needed.
func openLogFile(dir string) (*os.File, string, error) {
	logDir := os.ExpandEnv(dir)

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create log output directory: %w", err)
	}

	name := fmt.Sprintf("innodump_%s.log", time.Now().Format("20060102_150405"))
	path := filepath.Join(logDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log file: %w", err)
	}
	return f, path, nil
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
