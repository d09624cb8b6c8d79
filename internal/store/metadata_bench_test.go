package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func benchStore(b *testing.B, chunkCount int) *SQLiteStore {
	b.Helper()
	s, err := NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	chunks := make([]*Chunk, chunkCount)
	for i := range chunks {
		chunks[i] = &Chunk{
			ID:          fmt.Sprintf("chunk-%04d", i),
			FileID:      fmt.Sprintf("file-%02d", i%50),
			FilePath:    fmt.Sprintf("src/pkg%02d/file.go", i%50),
			Content:     fmt.Sprintf("func Handler%d(w ResponseWriter, r *Request) { process(%d) }", i, i),
			ContentType: ContentTypeCode,
			Language:    "go",
			StartLine:   1,
			EndLine:     10,
		}
	}
	if err := s.SaveChunks(ctx, chunks); err != nil {
		b.Fatal(err)
	}
	return s
}

func BenchmarkGetChunksBatch(b *testing.B) {
	s := benchStore(b, 1000)
	ctx := context.Background()

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("chunk-%04d", i*20)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.GetChunks(ctx, ids); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSaveChunks(b *testing.B) {
	s := benchStore(b, 0)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chunk := &Chunk{
			ID:          fmt.Sprintf("bench-%d", i),
			FileID:      "file-bench",
			FilePath:    "src/bench.go",
			Content:     "func bench() {}",
			ContentType: ContentTypeCode,
			Language:    "go",
			StartLine:   1,
			EndLine:     2,
		}
		if err := s.SaveChunks(ctx, []*Chunk{chunk}); err != nil {
			b.Fatal(err)
		}
	}
}
