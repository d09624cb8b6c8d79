package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces bursts of events for the same path so an editor
// save-storm becomes one index update. Sequences merge as:
//
//	CREATE then MODIFY -> CREATE   (still a new file)
//	CREATE then DELETE -> nothing  (never really existed)
//	MODIFY then DELETE -> DELETE
//	DELETE then CREATE -> MODIFY   (replaced in place)
type Debouncer struct {
	window  time.Duration
	pending map[string]*pendingEvent
	mu      sync.Mutex
	output  chan []FileEvent
	timer   *time.Timer
	stopCh  chan struct{}
	stopped bool
}

type pendingEvent struct {
	event    FileEvent
	firstOp  Operation
	lastSeen time.Time
}

// NewDebouncer coalesces events within the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, 10),
		stopCh:  make(chan struct{}),
	}
}

// Add feeds one event in. The flush timer restarts, so a steady stream
// of events for a path keeps extending its window.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if existing, ok := d.pending[event.Path]; ok {
		merged := coalesce(existing, event)
		if merged == nil {
			delete(d.pending, event.Path) // CREATE+DELETE cancel out
		} else {
			existing.event = *merged
			existing.lastSeen = now
		}
	} else {
		d.pending[event.Path] = &pendingEvent{
			event:    event,
			firstOp:  event.Operation,
			lastSeen: now,
		}
	}

	d.scheduleFlush()
}

// coalesce merges a new event into an existing pending one; nil means
// the pair cancels out entirely.
func coalesce(existing *pendingEvent, incoming FileEvent) *FileEvent {
	switch existing.firstOp {
	case OpCreate:
		switch incoming.Operation {
		case OpModify:
			return &existing.event
		case OpDelete:
			return nil
		default:
			return &incoming
		}

	case OpModify:
		return &incoming

	case OpDelete:
		if incoming.Operation == OpCreate {
			replaced := incoming
			replaced.Operation = OpModify
			return &replaced
		}
		return &incoming

	default:
		return &incoming
	}
}

func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]FileEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		events = append(events, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer output full, dropping batch",
			slog.Int("batch_size", len(events)))
	}
}

// Output delivers coalesced batches once their window elapses.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop halts the debouncer and closes Output. Safe to call twice.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.stopCh)
	close(d.output)
}
