package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FormatBytes renders a byte count as a human-readable string, for the
// `cache info` CLI command.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), units[exp])
}

// FormatTime renders a timestamp for display, returning "unknown" for the
// zero value.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// inferBackendFromModel guesses which embedding backend produced an index
// from its stored model name, for the `cache info` compatibility check.
func inferBackendFromModel(model string) string {
	if model == "static" || strings.HasPrefix(model, "static") {
		return "static"
	}
	return "ollama"
}

// getDirSize returns the total size in bytes of all regular files under
// root, walked recursively. Returns 0 if root does not exist.
func getDirSize(root string) int64 {
	var total int64
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// BuildIndexInfo assembles an IndexInfo from persisted state and on-disk
// index sizes, for the `cache info` CLI command.
func BuildIndexInfo(dataDir, projectRoot string, project *Project, indexModel string, currentModel, currentBackend string, currentDimensions int) *IndexInfo {
	bm25Path := filepath.Join(dataDir, "bm25")
	vectorPath := filepath.Join(dataDir, "vectors.hnsw")

	info := &IndexInfo{
		Location:        dataDir,
		ProjectRoot:     projectRoot,
		IndexModel:      indexModel,
		IndexBackend:    inferBackendFromModel(indexModel),
		BM25SizeBytes:   getDirSize(bm25Path),
		VectorSizeBytes: getDirSize(vectorPath),
		CurrentModel:    currentModel,
		CurrentBackend:  currentBackend,
		CurrentDimensions: currentDimensions,
	}
	info.IndexSizeBytes = info.BM25SizeBytes + info.VectorSizeBytes

	if project != nil {
		info.ChunkCount = project.ChunkCount
		info.DocumentCount = project.FileCount
		info.UpdatedAt = project.IndexedAt
	}

	info.Compatible = indexModel == "" || indexModel == currentModel
	return info
}
