package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir is where log files land when no explicit path is
// configured: ~/.semantic-code/logs, or a temp-dir equivalent when the
// home directory cannot be resolved.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".semantic-code", "logs")
	}
	return filepath.Join(home, ".semantic-code", "logs")
}

// DefaultLogPath is the default server log file.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}
