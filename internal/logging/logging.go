package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config describes a file-backed logger.
type Config struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string
	// FilePath is the log file; empty disables file logging.
	FilePath string
	// MaxSizeMB bounds one file before rotation.
	MaxSizeMB int
	// MaxFiles bounds how many rotated generations are kept.
	MaxFiles int
	// WriteToStderr mirrors every line to stderr as well.
	WriteToStderr bool
	// Format is "text" (key=value) or "json" (one object per line).
	Format string
}

// DefaultConfig logs at info to the default path, mirrored to stderr.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
		Format:        "text",
	}
}

// Setup builds a file-backed logger with rotation. The returned cleanup
// flushes and closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	logger := slog.New(newHandler(cfg.Format, output, parseLevel(cfg.Level)))
	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

// newHandler picks the slog.Handler for a format name. Unknown formats
// fall back to text.
func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// NewStderrLogger builds a logger that writes exclusively to stderr —
// never to stdout, which the MCP stdio transport owns.
func NewStderrLogger(level, format string) *slog.Logger {
	return slog.New(newHandler(format, os.Stderr, parseLevel(level)))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
