// Package cmd provides the CLI commands for semantic-code-mcp.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/semantic-code-mcp/internal/logging"
	"github.com/aman-cerp/semantic-code-mcp/pkg/version"
)

var (
	flagRootDir   string
	flagDataDir   string
	flagLogLevel  string
	flagLogFormat string
	flagLogFile   string
	flagOffline   bool

	// logCleanup closes the rotating log file when --log-file is in use.
	logCleanup func()
)

// NewRootCmd creates the root command for the semantic-code-mcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "semantic-code-mcp",
		Short:   "Semantic code search over a local source tree",
		Version: version.Version,
		Long: `semantic-code-mcp indexes a local source tree into a hybrid
vector/keyword store and exposes a single semantic_search tool over the
Model Context Protocol, for AI developer tools to query by meaning
rather than by token.

Run 'semantic-code-mcp mcp serve' to start the stdio server; if the index
directory does not exist, serve starts rebuilding it in the background.`,
	}

	cmd.SetVersionTemplate("semantic-code-mcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagRootDir, "root", ".", "project root to index; all paths are validated to lie within it")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "index directory (default <root>/.semantic-code/index)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text|json")
	cmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also write logs to this file, with rotation (e.g. "+logging.DefaultLogPath()+")")
	cmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "use the static fallback embedder instead of Ollama")

	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if logCleanup != nil {
			logCleanup()
		}
	}()
	return NewRootCmd().Execute()
}

// rootLogger returns the shared logger for every command: stderr only,
// or stderr plus a rotating file when --log-file is set. Logs never
// touch stdout, which `mcp serve` reserves exclusively for JSON-RPC
// traffic.
func rootLogger() *slog.Logger {
	if flagLogFile != "" {
		logger, cleanup, err := logging.Setup(logging.Config{
			Level:         flagLogLevel,
			Format:        flagLogFormat,
			FilePath:      flagLogFile,
			MaxSizeMB:     10,
			MaxFiles:      5,
			WriteToStderr: true,
		})
		if err == nil {
			logCleanup = cleanup
			return logger
		}
	}
	return logging.NewStderrLogger(flagLogLevel, flagLogFormat)
}
