// Package watcher keeps the index manager informed of filesystem
// changes under the project root. fsnotify drives the primary path; a
// polling diff takes over where fsnotify cannot initialize (network
// mounts, some container volumes). Raw events are filtered against
// .gitignore and the index directory, then debounced per path so an
// editor save-storm reaches the indexer as a single batched change.
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer w.Stop()
//	go w.Start(ctx, root)
//	for batch := range w.Events() {
//		// coalesced []FileEvent, one entry per touched path
//	}
package watcher
