// Package ui provides progress reporting for long-running indexing runs.
// It implements the "callback-typed progress -> event stream" redesign: the
// CLI and the MCP tool handler both consume the same Renderer interface
// instead of passing an on_progress closure through locked sections.
package ui

import (
	"context"
	"time"
)

// Stage represents an indexing stage.
type Stage int

const (
	// StageScanning is the file scanning stage.
	StageScanning Stage = iota
	// StageChunking is the code chunking stage.
	StageChunking
	// StageEmbedding is the embedding generation stage.
	StageEmbedding
	// StageIndexing is the index building stage.
	StageIndexing
	// StageComplete indicates indexing is complete.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageChunking:
		return "Chunking"
	case StageEmbedding:
		return "Embedding"
	case StageIndexing:
		return "Indexing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage label used in plain-text progress lines.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageChunking:
		return "CHUNK"
	case StageEmbedding:
		return "EMBED"
	case StageIndexing:
		return "INDEX"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents a non-fatal error encountered while indexing a file.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// StageTimings tracks duration for each indexing stage.
type StageTimings struct {
	Scan  time.Duration
	Chunk time.Duration
	Embed time.Duration
	Index time.Duration
}

// EmbedderInfo contains embedder backend details, surfaced so a caller can
// tell whether the run used the real embedder or the static fallback.
type EmbedderInfo struct {
	Backend    string
	Model      string
	Dimensions int
}

// CompletionStats contains final indexing statistics.
type CompletionStats struct {
	Files    int
	Chunks   int
	Duration time.Duration
	Errors   int
	Warnings int
	Stages   StageTimings
	Embedder EmbedderInfo
}

// Renderer defines the interface for progress display. The index command
// uses a PlainRenderer that writes to the command's output (stdout by
// default); the MCP server passes a Renderer that forwards to an
// async.IndexProgress so a concurrent search call can read a snapshot
// without blocking on the renderer.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError records an error or warning encountered for one file.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with a final summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and releases any resources.
	Stop() error
}
