package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/aman-cerp/semantic-code-mcp/internal/chunk"
	"github.com/aman-cerp/semantic-code-mcp/internal/gitignore"
	"github.com/aman-cerp/semantic-code-mcp/internal/scanner"
	"github.com/aman-cerp/semantic-code-mcp/internal/search"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
	"github.com/aman-cerp/semantic-code-mcp/internal/watcher"
)

// DefaultMaxFileSize caps a single indexable file at 100MB; anything
// larger is skipped rather than read into memory.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// CoordinatorConfig wires a Coordinator.
type CoordinatorConfig struct {
	// ProjectID keys rows in the metadata store.
	ProjectID string

	// RootPath is the absolute project root.
	RootPath string

	// DataDir is the index directory.
	DataDir string

	// Engine performs the actual index/delete operations.
	Engine *search.Engine

	// Metadata tracks files and chunks.
	Metadata store.MetadataStore

	// CodeChunker and MDChunker split source and markdown files.
	CodeChunker chunk.Chunker
	MDChunker   chunk.Chunker

	// Scanner enables gitignore reconciliation when set.
	Scanner *scanner.Scanner

	// ExcludePatterns mirror the configured scan excludes, so
	// reconciliation sees the same file set as the initial scan.
	ExcludePatterns []string

	// MaxFileSize overrides DefaultMaxFileSize when positive.
	MaxFileSize int64
}

// Coordinator applies debounced watcher events to the index: re-ingest
// on create/modify, purge on delete, reconcile on ignore-rule changes.
// One mutex serializes every batch, which satisfies the per-path
// ordering requirement (two events for the same path can never run
// concurrently) at the cost of cross-path parallelism.
type Coordinator struct {
	config CoordinatorConfig
	mu     sync.Mutex
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	return &Coordinator{config: config}
}

func (c *Coordinator) maxFileSize() int64 {
	if c.config.MaxFileSize > 0 {
		return c.config.MaxFileSize
	}
	return DefaultMaxFileSize
}

// HandleEvents applies one debounced batch. A failing event is logged
// and skipped; the rest of the batch still lands.
func (c *Coordinator) HandleEvents(ctx context.Context, events []watcher.FileEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var processed int
	for _, event := range events {
		if err := c.handleEvent(ctx, event); err != nil {
			slog.Warn("failed to process file event",
				slog.String("path", event.Path),
				slog.String("operation", event.Operation.String()),
				slog.String("error", err.Error()))
			continue
		}
		processed++
	}

	if processed > 0 {
		if err := c.config.Metadata.RefreshProjectStats(ctx, c.config.ProjectID); err != nil {
			slog.Warn("failed to refresh project stats", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (c *Coordinator) handleEvent(ctx context.Context, event watcher.FileEvent) error {
	slog.Debug("processing file event",
		slog.String("path", event.Path),
		slog.String("operation", event.Operation.String()),
		slog.Bool("is_dir", event.IsDir))

	if event.IsDir {
		return nil
	}

	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		return c.indexFile(ctx, event.Path)
	case watcher.OpDelete:
		return c.removeFile(ctx, event.Path)
	case watcher.OpRename:
		// A RENAME event carries the old path; the new path arrives as
		// its own CREATE event.
		return c.removeFile(ctx, event.Path)
	case watcher.OpGitignoreChange:
		return c.handleGitignoreChange(ctx, event.Path)
	case watcher.OpConfigChange:
		return c.handleConfigChange(ctx)
	default:
		return nil
	}
}

// indexFile re-ingests one file: read, hash, purge the old records,
// chunk, and hand the chunks to the engine.
func (c *Coordinator) indexFile(ctx context.Context, relPath string) error {
	absPath := filepath.Join(c.config.RootPath, relPath)

	// Lstat, not Stat: symlinks are skipped, never followed.
	info, err := os.Lstat(absPath)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		slog.Debug("skipping symlink", slog.String("path", relPath))
		return nil
	}

	maxSize := c.maxFileSize()
	if info.Size() > maxSize {
		slog.Warn("skipping oversized file",
			slog.String("path", relPath),
			slog.Int64("size", info.Size()),
			slog.Int64("max", maxSize))
		return nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if isBinaryContent(content) {
		return nil
	}

	language := scanner.DetectLanguage(relPath)
	contentType := scanner.DetectContentType(language)
	if contentType != scanner.ContentTypeCode && contentType != scanner.ContentTypeMarkdown {
		return nil
	}

	// Purge stale records before re-ingesting, so a modified file never
	// leaves chunks from its previous version behind. Absence is fine.
	_ = c.removeFile(ctx, relPath)

	var chunker chunk.Chunker
	switch contentType {
	case scanner.ContentTypeCode:
		chunker = c.config.CodeChunker
	case scanner.ContentTypeMarkdown:
		chunker = c.config.MDChunker
	default:
		return nil
	}

	chunks, err := chunker.Chunk(ctx, &chunk.FileInput{
		Path:     relPath,
		Content:  content,
		Language: language,
	})
	if err != nil {
		return fmt.Errorf("chunk file: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	fileID := generateFileID(c.config.ProjectID, relPath)

	// The file row goes in first; chunk rows reference it.
	file := &store.File{
		ID:          fileID,
		ProjectID:   c.config.ProjectID,
		Path:        relPath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentHash: hashContent(content),
		Language:    language,
		ContentType: string(contentType),
	}
	if err := c.config.Metadata.SaveFiles(ctx, []*store.File{file}); err != nil {
		return fmt.Errorf("save file record: %w", err)
	}

	now := time.Now()
	storeChunks := make([]*store.Chunk, len(chunks))
	for i, ch := range chunks {
		storeChunks[i] = chunkToStoreChunk(ch, fileID, now, store.ContentType(contentType))
	}

	if err := c.config.Engine.Index(ctx, storeChunks); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	return nil
}

// removeFile purges a file's chunks from every index plus its file
// row. A path the index has never seen is not an error.
func (c *Coordinator) removeFile(ctx context.Context, relPath string) error {
	fileID := generateFileID(c.config.ProjectID, relPath)

	chunks, err := c.config.Metadata.GetChunksByFile(ctx, fileID)
	if err != nil {
		return nil
	}

	if len(chunks) == 0 {
		// A file row without chunks can still exist; clean it up too.
		if err := c.config.Metadata.DeleteFile(ctx, fileID); err != nil {
			slog.Warn("failed to delete orphan file record",
				slog.String("file_id", fileID),
				slog.String("path", relPath),
				slog.String("error", err.Error()))
		}
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	for i, ch := range chunks {
		chunkIDs[i] = ch.ID
	}

	if err := c.config.Engine.Delete(ctx, chunkIDs); err != nil {
		return fmt.Errorf("delete from index: %w", err)
	}
	if err := c.config.Metadata.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// reconcileType selects how much work a gitignore change costs.
type reconcileType int

const (
	reconcileFull reconcileType = iota
	reconcileSubtree
	reconcilePatternDiff
)

type reconcileStrategy struct {
	Type            reconcileType
	Scope           string   // subtree directory
	AddedPatterns   []string // pattern diff
	RemovedPatterns []string // removal forces a full scan
}

// stateGitignoreContent caches the root .gitignore so the next change
// can be diffed instead of rescanning.
const stateGitignoreContent = "gitignore_content"

// handleGitignoreChange reconciles the index after an ignore-rule
// change, choosing the cheapest sufficient strategy: a nested
// .gitignore only affects its subtree; added-only root patterns can be
// applied to the indexed file list without touching the filesystem;
// removed patterns may unhide files and need the full scan.
func (c *Coordinator) handleGitignoreChange(ctx context.Context, gitignorePath string) error {
	if c.config.Scanner == nil {
		slog.Warn("gitignore change detected but scanner not configured, skipping reconciliation")
		return nil
	}

	// Drop cached matchers first or the rescan would reuse old rules.
	c.config.Scanner.InvalidateGitignoreCache()
	slog.Debug("invalidated scanner gitignore cache", "trigger", gitignorePath)

	strategy := c.determineReconciliationStrategy(ctx, gitignorePath)

	var err error
	switch strategy.Type {
	case reconcileSubtree:
		slog.Info("gitignore change - subtree reconciliation",
			slog.String("path", gitignorePath),
			slog.String("scope", strategy.Scope))
		err = c.reconcileSubtree(ctx, strategy.Scope)

	case reconcilePatternDiff:
		slog.Info("gitignore change - pattern diff reconciliation",
			slog.String("path", gitignorePath),
			slog.Int("added", len(strategy.AddedPatterns)),
			slog.Int("removed", len(strategy.RemovedPatterns)))
		err = c.reconcilePatternDiff(ctx, strategy.AddedPatterns)

	default:
		slog.Info("gitignore change - full reconciliation",
			slog.String("path", gitignorePath),
			slog.String("reason", "patterns removed or no cached content"))
		err = c.reconcileFullScan(ctx)
	}
	if err != nil {
		return err
	}

	newHash, hashErr := ComputeGitignoreHash(c.config.RootPath)
	if hashErr != nil {
		slog.Warn("failed to compute new gitignore hash", slog.String("error", hashErr.Error()))
		return nil
	}
	if setErr := c.config.Metadata.SetState(ctx, GitignoreHashKey, newHash); setErr != nil {
		slog.Warn("failed to save gitignore hash", slog.String("error", setErr.Error()))
	}
	return nil
}

func (c *Coordinator) determineReconciliationStrategy(ctx context.Context, gitignorePath string) reconcileStrategy {
	relPath, err := filepath.Rel(c.config.RootPath, gitignorePath)
	if err != nil {
		slog.Debug("failed to get relative path, using full reconciliation", slog.String("error", err.Error()))
		return reconcileStrategy{Type: reconcileFull}
	}

	dir := filepath.Dir(relPath)
	if dir != "." && dir != "" {
		return reconcileStrategy{Type: reconcileSubtree, Scope: dir}
	}

	oldContent, err := c.config.Metadata.GetState(ctx, stateGitignoreContent)
	if err != nil || oldContent == "" {
		// Nothing to diff against; remember the current content for
		// next time and pay for a full scan once.
		newContent, _ := os.ReadFile(gitignorePath)
		if len(newContent) > 0 {
			_ = c.config.Metadata.SetState(ctx, stateGitignoreContent, string(newContent))
		}
		return reconcileStrategy{Type: reconcileFull}
	}

	newContent, err := os.ReadFile(gitignorePath)
	if err != nil {
		_ = c.config.Metadata.SetState(ctx, stateGitignoreContent, "")
		return reconcileStrategy{Type: reconcileFull}
	}

	added, removed := gitignore.DiffPatterns(oldContent, string(newContent))
	_ = c.config.Metadata.SetState(ctx, stateGitignoreContent, string(newContent))

	if len(added) > 0 && len(removed) == 0 {
		slog.Debug("root gitignore: only patterns added, using pattern diff",
			slog.Int("added_count", len(added)))
		return reconcileStrategy{Type: reconcilePatternDiff, AddedPatterns: added}
	}

	if len(removed) > 0 {
		slog.Debug("root gitignore: patterns removed, requiring full scan",
			slog.Int("removed_count", len(removed)),
			slog.Int("added_count", len(added)))
		return reconcileStrategy{
			Type:            reconcileFull,
			AddedPatterns:   added,
			RemovedPatterns: removed,
		}
	}

	// Comment or whitespace edits only.
	slog.Debug("root gitignore: no pattern changes detected")
	return reconcileStrategy{Type: reconcilePatternDiff}
}

// reconcilePatternDiff handles added-only root patterns: filter the
// already-indexed file list against the new patterns, no scan at all.
func (c *Coordinator) reconcilePatternDiff(ctx context.Context, addedPatterns []string) error {
	if len(addedPatterns) == 0 {
		slog.Debug("gitignore pattern diff: no patterns to process")
		return nil
	}

	indexedPaths, err := c.config.Metadata.GetFilePathsByProject(ctx, c.config.ProjectID)
	if err != nil {
		return fmt.Errorf("list indexed files: %w", err)
	}

	var toRemove []string
	for _, path := range indexedPaths {
		if gitignore.MatchesAnyPattern(path, addedPatterns) {
			toRemove = append(toRemove, path)
		}
	}

	for _, path := range toRemove {
		if err := c.removeFile(ctx, path); err != nil {
			slog.Warn("failed to remove newly-ignored file",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("pattern diff reconciliation complete",
		slog.Int("patterns_added", len(addedPatterns)),
		slog.Int("files_removed", len(toRemove)))
	return nil
}

// reconcileSubtree re-syncs only the files under one directory against
// a fresh subtree scan.
func (c *Coordinator) reconcileSubtree(ctx context.Context, subtreePath string) error {
	indexedPaths, err := c.config.Metadata.ListFilePathsUnder(ctx, c.config.ProjectID, subtreePath)
	if err != nil {
		return fmt.Errorf("list indexed files under %s: %w", subtreePath, err)
	}

	resultChan, err := c.config.Scanner.ScanSubtree(ctx, &scanner.ScanOptions{
		RootDir:          c.config.RootPath,
		RespectGitignore: true,
	}, subtreePath)
	if err != nil {
		return fmt.Errorf("scan subtree %s: %w", subtreePath, err)
	}

	removed, added := c.syncAgainstScan(ctx, indexedPaths, resultChan)
	slog.Info("subtree reconciliation complete",
		slog.String("subtree", subtreePath),
		slog.Int("removed", removed),
		slog.Int("added", added))
	return nil
}

// reconcileFullScan re-syncs the whole project against a fresh scan.
func (c *Coordinator) reconcileFullScan(ctx context.Context) error {
	if c.config.Scanner == nil {
		return nil
	}

	slog.Debug("reconciling index after gitignore change")

	indexedPaths, err := c.config.Metadata.GetFilePathsByProject(ctx, c.config.ProjectID)
	if err != nil {
		return fmt.Errorf("get indexed files: %w", err)
	}

	resultChan, err := c.config.Scanner.Scan(ctx, &scanner.ScanOptions{
		RootDir:          c.config.RootPath,
		RespectGitignore: true,
		ExcludePatterns:  c.config.ExcludePatterns,
	})
	if err != nil {
		return fmt.Errorf("scan for gitignore reconciliation: %w", err)
	}

	removed, added := c.syncAgainstScan(ctx, indexedPaths, resultChan)
	if removed > 0 || added > 0 {
		slog.Info("gitignore sync completed",
			slog.Int("removed", removed),
			slog.Int("added", added))
	} else {
		slog.Debug("gitignore sync: no changes needed")
	}
	return nil
}

// syncAgainstScan diffs the indexed path set against a scan stream and
// applies the difference: indexed-but-unscanned paths are purged,
// scanned-but-unindexed paths are ingested. Individual failures are
// logged, not fatal.
func (c *Coordinator) syncAgainstScan(ctx context.Context, indexedPaths []string, results <-chan scanner.ScanResult) (removed, added int) {
	indexedSet := make(map[string]bool, len(indexedPaths))
	for _, p := range indexedPaths {
		indexedSet[p] = true
	}

	shouldBeIndexed := make(map[string]bool)
	for result := range results {
		if result.Error != nil {
			slog.Debug("scan error during reconciliation",
				slog.String("error", result.Error.Error()))
			continue
		}
		if result.File == nil {
			continue
		}
		contentType := scanner.DetectContentType(result.File.Language)
		if contentType == scanner.ContentTypeCode || contentType == scanner.ContentTypeMarkdown {
			shouldBeIndexed[result.File.Path] = true
		}
	}

	for path := range indexedSet {
		if !shouldBeIndexed[path] {
			if err := c.removeFile(ctx, path); err != nil {
				slog.Warn("failed to remove file during reconciliation",
					slog.String("path", path),
					slog.String("error", err.Error()))
				continue
			}
			removed++
		}
	}
	for path := range shouldBeIndexed {
		if !indexedSet[path] {
			if err := c.indexFile(ctx, path); err != nil {
				slog.Warn("failed to index file during reconciliation",
					slog.String("path", path),
					slog.String("error", err.Error()))
				continue
			}
			added++
		}
	}
	return removed, added
}

// handleConfigChange reacts to a project-config edit. Exclude patterns
// are loaded at startup, so this reconciles with the current in-memory
// set; a full config reload still requires a restart.
func (c *Coordinator) handleConfigChange(ctx context.Context) error {
	slog.Info("configuration file changed",
		slog.String("note", "restart server for full config reload"))

	if c.config.Scanner == nil {
		slog.Warn("config change detected but scanner not configured, skipping reconciliation")
		return nil
	}

	c.config.Scanner.InvalidateGitignoreCache()
	return c.reconcileFullScan(ctx)
}

// generateFileID derives the stable file id from project and path.
func generateFileID(projectID, path string) string {
	hash := sha256.Sum256([]byte(projectID + ":" + path))
	return hex.EncodeToString(hash[:])[:16]
}

// hashContent is the content hash recorded per file: equal bytes hash
// equal, any byte difference differs.
func hashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func isBinaryContent(content []byte) bool {
	checkLen := 512
	if len(content) < checkLen {
		checkLen = len(content)
	}
	for i := 0; i < checkLen; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// GitignoreHashKey stores the combined gitignore hash across restarts.
const GitignoreHashKey = "gitignore_hash"

// ComputeGitignoreHash hashes every .gitignore in the tree as sorted
// "path:content" pairs, so any edit anywhere changes the digest.
func ComputeGitignoreHash(rootPath string) (string, error) {
	var gitignorePaths []string

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (name[0] == '.' || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".gitignore" {
			gitignorePaths = append(gitignorePaths, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk directory: %w", err)
	}

	sort.Strings(gitignorePaths)

	h := sha256.New()
	for _, path := range gitignorePaths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		relPath, _ := filepath.Rel(rootPath, path)
		h.Write([]byte(relPath))
		h.Write([]byte(":"))
		h.Write(content)
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReconcileOnStartup catches gitignore edits made while the server was
// down, by comparing the stored hash against the current tree.
func (c *Coordinator) ReconcileOnStartup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.Scanner == nil {
		slog.Debug("startup reconciliation skipped: scanner not configured")
		return nil
	}

	cachedHash, err := c.config.Metadata.GetState(ctx, GitignoreHashKey)
	if err != nil {
		slog.Warn("failed to get cached gitignore hash", slog.String("error", err.Error()))
	}

	currentHash, err := ComputeGitignoreHash(c.config.RootPath)
	if err != nil {
		slog.Warn("failed to compute gitignore hash", slog.String("error", err.Error()))
		return nil
	}

	if cachedHash == currentHash && cachedHash != "" {
		slog.Debug("gitignore unchanged since last run, skipping startup reconciliation")
		return nil
	}

	slog.Info("gitignore changed since last run, reconciling index")

	if err := c.reconcileFullScan(ctx); err != nil {
		return fmt.Errorf("startup reconciliation failed: %w", err)
	}

	if err := c.config.Metadata.SetState(ctx, GitignoreHashKey, currentHash); err != nil {
		slog.Warn("failed to save gitignore hash", slog.String("error", err.Error()))
	}
	return nil
}

// ChangeType classifies a change found during startup reconciliation.
type ChangeType int

const (
	ChangeTypeAdded ChangeType = iota
	ChangeTypeModified
	ChangeTypeDeleted
)

// FileChange is one offline change to apply.
type FileChange struct {
	Path string
	Type ChangeType
}

// ReconcileFilesOnStartup syncs the index with files that were added,
// modified, or deleted while the server was down, by diffing the
// metadata store's mtime/size records against a fresh scan.
func (c *Coordinator) ReconcileFilesOnStartup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.Scanner == nil {
		slog.Debug("file reconciliation skipped: scanner not configured")
		return nil
	}

	slog.Debug("starting file reconciliation check")

	indexedFiles, err := c.config.Metadata.GetFilesForReconciliation(ctx, c.config.ProjectID)
	if err != nil {
		return fmt.Errorf("get indexed files: %w", err)
	}
	if len(indexedFiles) == 0 {
		slog.Debug("no indexed files found, skipping file reconciliation")
		return nil
	}

	currentFiles, err := c.scanCurrentFiles(ctx)
	if err != nil {
		return fmt.Errorf("scan filesystem: %w", err)
	}

	changes := c.detectFileChanges(indexedFiles, currentFiles)
	if len(changes) == 0 {
		slog.Debug("no file changes detected since last index")
		return nil
	}

	var added, modified, deleted int
	for _, ch := range changes {
		switch ch.Type {
		case ChangeTypeAdded:
			added++
		case ChangeTypeModified:
			modified++
		case ChangeTypeDeleted:
			deleted++
		}
	}
	slog.Info("file changes detected, reconciling",
		slog.Int("added", added),
		slog.Int("modified", modified),
		slog.Int("deleted", deleted))

	if err := c.applyFileChanges(ctx, changes); err != nil {
		return fmt.Errorf("apply file changes: %w", err)
	}

	slog.Info("file reconciliation completed",
		slog.Int("total_changes", len(changes)))
	return nil
}

func (c *Coordinator) scanCurrentFiles(ctx context.Context) (map[string]*scanner.FileInfo, error) {
	resultChan, err := c.config.Scanner.Scan(ctx, &scanner.ScanOptions{
		RootDir:          c.config.RootPath,
		RespectGitignore: true,
		ExcludePatterns:  c.config.ExcludePatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("start scan: %w", err)
	}

	current := make(map[string]*scanner.FileInfo)
	for result := range resultChan {
		if result.Error != nil {
			slog.Debug("scan error during file reconciliation",
				slog.String("error", result.Error.Error()))
			continue
		}
		if result.File == nil {
			continue
		}
		contentType := scanner.DetectContentType(result.File.Language)
		if contentType == scanner.ContentTypeCode || contentType == scanner.ContentTypeMarkdown {
			current[result.File.Path] = result.File
		}
	}
	return current, nil
}

// detectFileChanges diffs the two file sets. Modification detection
// truncates mtimes to whole seconds, the store's precision.
func (c *Coordinator) detectFileChanges(indexed map[string]*store.File, current map[string]*scanner.FileInfo) []FileChange {
	var changes []FileChange

	for path, indexedFile := range indexed {
		currentFile, exists := current[path]
		if !exists {
			changes = append(changes, FileChange{Path: path, Type: ChangeTypeDeleted})
			continue
		}
		indexedMtime := indexedFile.ModTime.Truncate(time.Second)
		currentMtime := currentFile.ModTime.Truncate(time.Second)
		if !currentMtime.Equal(indexedMtime) || currentFile.Size != indexedFile.Size {
			changes = append(changes, FileChange{Path: path, Type: ChangeTypeModified})
		}
	}

	for path := range current {
		if _, exists := indexed[path]; !exists {
			changes = append(changes, FileChange{Path: path, Type: ChangeTypeAdded})
		}
	}

	// Deletions first, then modifications, then additions; path order
	// within each class keeps runs deterministic.
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Type != changes[j].Type {
			return changes[i].Type > changes[j].Type
		}
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// applyFileChanges processes changes one file at a time, checking for
// shutdown between files so cancellation never interrupts a file
// mid-ingest.
func (c *Coordinator) applyFileChanges(ctx context.Context, changes []FileChange) error {
	var deleted, modified, added int

	for i, change := range changes {
		select {
		case <-ctx.Done():
			slog.Debug("file reconciliation interrupted by shutdown",
				slog.Int("processed", i),
				slog.Int("remaining", len(changes)-i))
			return nil
		default:
		}

		switch change.Type {
		case ChangeTypeDeleted:
			if err := c.removeFile(ctx, change.Path); err != nil {
				slog.Warn("failed to remove deleted file from index",
					slog.String("path", change.Path),
					slog.String("error", err.Error()))
			} else {
				deleted++
			}
		case ChangeTypeModified:
			if err := c.indexFile(ctx, change.Path); err != nil {
				slog.Warn("failed to re-index modified file",
					slog.String("path", change.Path),
					slog.String("error", err.Error()))
			} else {
				modified++
			}
		case ChangeTypeAdded:
			if err := c.indexFile(ctx, change.Path); err != nil {
				slog.Warn("failed to index new file",
					slog.String("path", change.Path),
					slog.String("error", err.Error()))
			} else {
				added++
			}
		}
	}

	slog.Debug("file reconciliation applied",
		slog.Int("deleted", deleted),
		slog.Int("modified", modified),
		slog.Int("added", added))
	return nil
}
