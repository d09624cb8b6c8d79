package watcher

import (
	"context"
	"time"
)

// Operation classifies a filesystem event.
type Operation int

const (
	// OpCreate: a new file or directory appeared.
	OpCreate Operation = iota
	// OpModify: an existing file changed.
	OpModify
	// OpDelete: a file or directory went away.
	OpDelete
	// OpRename: a file or directory was renamed. The coordinator treats
	// this as delete-old plus add-new.
	OpRename
	// OpGitignoreChange: a .gitignore changed, so the set of indexed
	// files may have changed without any source file changing.
	OpGitignoreChange
	// OpConfigChange: the project config file (.semantic-code.yaml)
	// changed; exclude patterns may need reloading.
	OpConfigChange
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpGitignoreChange:
		return "GITIGNORE_CHANGE"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one filesystem change, with paths relative to the
// watched root.
type FileEvent struct {
	Path      string
	OldPath   string // not set by the watchers here; a RENAME carries the old path in Path
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher watches a directory tree and delivers debounced event
// batches. Events for the same path within the debounce window are
// coalesced before delivery.
type Watcher interface {
	// Start watches path recursively until Stop or context
	// cancellation. It blocks for the lifetime of the watch.
	Start(ctx context.Context, path string) error

	// Stop shuts the watcher down. Safe to call more than once.
	Stop() error

	// Events delivers debounced event batches. Closed on Stop.
	Events() <-chan []FileEvent

	// Errors delivers non-fatal errors; the watcher keeps running.
	// Closed on Stop.
	Errors() <-chan error
}

// Options tunes a watcher.
type Options struct {
	// DebounceWindow coalesces editor save-storms: events for one path
	// within the window merge into one.
	DebounceWindow time.Duration

	// PollInterval drives the polling fallback when inotify-style
	// watching is unavailable.
	PollInterval time.Duration

	// EventBufferSize bounds the outgoing batch channel.
	EventBufferSize int

	// IgnorePatterns extend the .gitignore-derived ignore set, using
	// gitignore syntax.
	IgnorePatterns []string
}

// DefaultOptions: 1s debounce, 5s poll fallback, 1000-batch buffer.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  time.Second,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults fills zero values with the defaults.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
