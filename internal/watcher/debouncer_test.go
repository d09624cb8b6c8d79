package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBatch(t *testing.T, d *Debouncer, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func ev(path string, op Operation) FileEvent {
	return FileEvent{Path: path, Operation: op, Timestamp: time.Now()}
}

func TestDebouncerEmitsAfterWindow(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(ev("a.go", OpModify))

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, "a.go", batch[0].Path)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncerCoalescesSaveStorm(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Add(ev("a.go", OpModify))
	}

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncerCreateThenModifyStaysCreate(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(ev("new.go", OpCreate))
	d.Add(ev("new.go", OpModify))

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncerCreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(ev("ghost.go", OpCreate))
	d.Add(ev("ghost.go", OpDelete))
	d.Add(ev("real.go", OpModify))

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, "real.go", batch[0].Path)
}

func TestDebouncerDeleteThenCreateBecomesModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(ev("swap.go", OpDelete))
	d.Add(ev("swap.go", OpCreate))

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncerModifyThenDeleteBecomesDelete(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(ev("gone.go", OpModify))
	d.Add(ev("gone.go", OpDelete))

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Operation)
}

func TestDebouncerSeparatePathsInOneBatch(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(ev("a.go", OpModify))
	d.Add(ev("b.go", OpCreate))

	batch := collectBatch(t, d, time.Second)
	assert.Len(t, batch, 2)
}

func TestDebouncerStopIsIdempotentAndSilences(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.Stop()
	d.Stop()

	d.Add(ev("late.go", OpModify)) // dropped, no panic

	_, open := <-d.Output()
	assert.False(t, open)
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
	assert.Equal(t, "RENAME", OpRename.String())
	assert.Equal(t, "GITIGNORE_CHANGE", OpGitignoreChange.String())
	assert.Equal(t, "CONFIG_CHANGE", OpConfigChange.String())
	assert.Equal(t, "UNKNOWN", Operation(99).String())
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()
	assert.Equal(t, time.Second, o.DebounceWindow)
	assert.Equal(t, 5*time.Second, o.PollInterval)
	assert.Equal(t, 1000, o.EventBufferSize)

	custom := Options{DebounceWindow: 5 * time.Millisecond}.WithDefaults()
	assert.Equal(t, 5*time.Millisecond, custom.DebounceWindow)
}
