// Package async tracks background indexing progress so the MCP tool
// handler can report lazy-initialization state to callers without
// blocking on it.
package async

import (
	"sync"
	"time"
)

// IndexingStatus is the overall state of the background pass.
type IndexingStatus string

const (
	StatusIndexing IndexingStatus = "indexing"
	StatusReady    IndexingStatus = "ready"
	StatusError    IndexingStatus = "error"
)

// IndexingStage names the phase currently running.
type IndexingStage string

const (
	StageScanning  IndexingStage = "scanning"
	StageChunking  IndexingStage = "chunking"
	StageEmbedding IndexingStage = "embedding"
	StageIndexing  IndexingStage = "indexing"
)

// IndexProgressSnapshot is one immutable reading of the progress, in
// the shape the index_status tool reports.
type IndexProgressSnapshot struct {
	Status         string  `json:"status"`
	Stage          string  `json:"stage"`
	FilesTotal     int     `json:"files_total"`
	FilesProcessed int     `json:"files_processed"`
	ChunksTotal    int     `json:"chunks_total"`
	ChunksIndexed  int     `json:"chunks_indexed"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// IndexProgress is the shared mutable state between the background
// indexing goroutine (writer) and the tool handler (reader). `mcp serve`
// starts the pass at startup when the project has no index, without
// waiting for a search; queries served in the meantime read this to
// explain their partial results.
type IndexProgress struct {
	mu sync.RWMutex

	status         IndexingStatus
	stage          IndexingStage
	filesTotal     int
	filesProcessed int
	chunksTotal    int
	chunksIndexed  int
	startTime      time.Time
	errorMessage   string
}

// NewIndexProgress starts in the indexing/scanning state.
func NewIndexProgress() *IndexProgress {
	return &IndexProgress{
		status:    StatusIndexing,
		stage:     StageScanning,
		startTime: time.Now(),
	}
}

// SetStage advances to a new stage with its item total.
func (p *IndexProgress) SetStage(stage IndexingStage, total int) {
	p.update(func() {
		p.stage = stage
		p.filesTotal = total
	})
}

// UpdateFiles records how many files have been processed.
func (p *IndexProgress) UpdateFiles(processed int) {
	p.update(func() { p.filesProcessed = processed })
}

// SetChunksTotal records the chunk total once chunking has counted it.
func (p *IndexProgress) SetChunksTotal(total int) {
	p.update(func() { p.chunksTotal = total })
}

// UpdateChunks records how many chunks have been embedded and indexed.
func (p *IndexProgress) UpdateChunks(indexed int) {
	p.update(func() { p.chunksIndexed = indexed })
}

// SetError marks the pass failed.
func (p *IndexProgress) SetError(message string) {
	p.update(func() {
		p.status = StatusError
		p.errorMessage = message
	})
}

// SetReady marks the pass complete; search results are whole from here.
func (p *IndexProgress) SetReady() {
	p.update(func() { p.status = StatusReady })
}

func (p *IndexProgress) update(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

// IsIndexing reports whether the pass is still running.
func (p *IndexProgress) IsIndexing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status == StatusIndexing
}

// Snapshot copies the current state.
func (p *IndexProgress) Snapshot() IndexProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var progressPct float64
	if p.filesTotal > 0 {
		progressPct = float64(p.filesProcessed) / float64(p.filesTotal) * 100.0
	}

	return IndexProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		FilesTotal:     p.filesTotal,
		FilesProcessed: p.filesProcessed,
		ChunksTotal:    p.chunksTotal,
		ChunksIndexed:  p.chunksIndexed,
		ProgressPct:    progressPct,
		ElapsedSeconds: int(time.Since(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
