// Package logging builds the engine's slog loggers. Everything goes to
// stderr by default, keeping stdout free for MCP stdio traffic; a log
// file with size-based rotation can be added on top with Setup.
package logging
