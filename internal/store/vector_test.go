package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 4

func newTestHNSW(t *testing.T) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(DefaultVectorStoreConfig(testDims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func unit(vals ...float32) []float32 {
	v := make([]float32, len(vals))
	copy(v, vals)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

func TestHNSWAddAndSearch(t *testing.T) {
	s := newTestHNSW(t)

	require.NoError(t, s.Add(context.Background(),
		[]string{"x", "y", "z"},
		[][]float32{
			unit(1, 0, 0, 0),
			unit(0, 1, 0, 0),
			unit(0.9, 0.1, 0, 0),
		}))

	results, err := s.Search(context.Background(), unit(1, 0, 0, 0), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "x", results[0].ID)
	assert.Equal(t, "z", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.GreaterOrEqual(t, float64(r.Score), 0.0)
		assert.LessOrEqual(t, float64(r.Score), 1.0)
	}
}

func TestHNSWUnnormalizedInputStillMatches(t *testing.T) {
	s := newTestHNSW(t)

	// Stored and query vectors are normalized internally for cosine.
	require.NoError(t, s.Add(context.Background(),
		[]string{"big"}, [][]float32{{10, 0, 0, 0}}))

	results, err := s.Search(context.Background(), []float32{0.5, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
}

func TestHNSWDimensionMismatch(t *testing.T) {
	s := newTestHNSW(t)

	err := s.Add(context.Background(), []string{"bad"}, [][]float32{{1, 2}})
	var mismatch ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, testDims, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Got)

	_, err = s.Search(context.Background(), []float32{1}, 1)
	require.ErrorAs(t, err, &mismatch)
}

func TestHNSWLengthMismatch(t *testing.T) {
	s := newTestHNSW(t)
	err := s.Add(context.Background(), []string{"a", "b"}, [][]float32{unit(1, 0, 0, 0)})
	require.Error(t, err)
}

func TestHNSWReplaceExistingID(t *testing.T) {
	s := newTestHNSW(t)

	require.NoError(t, s.Add(context.Background(), []string{"doc"}, [][]float32{unit(1, 0, 0, 0)}))
	require.NoError(t, s.Add(context.Background(), []string{"doc"}, [][]float32{unit(0, 1, 0, 0)}))

	assert.Equal(t, 1, s.Count())

	results, err := s.Search(context.Background(), unit(0, 1, 0, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)

	// The replaced node lingers as an orphan until compaction.
	stats := s.Stats()
	assert.Equal(t, 1, stats.ValidIDs)
	assert.Equal(t, 1, stats.Orphans)
}

func TestHNSWDeleteHidesFromSearch(t *testing.T) {
	s := newTestHNSW(t)

	require.NoError(t, s.Add(context.Background(),
		[]string{"keep", "drop"},
		[][]float32{unit(1, 0, 0, 0), unit(0, 1, 0, 0)}))

	require.NoError(t, s.Delete(context.Background(), []string{"drop"}))

	assert.False(t, s.Contains("drop"))
	assert.True(t, s.Contains("keep"))
	assert.Equal(t, 1, s.Count())
	assert.ElementsMatch(t, []string{"keep"}, s.AllIDs())

	results, err := s.Search(context.Background(), unit(0, 1, 0, 0), 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "drop", r.ID)
	}
}

func TestHNSWEmptyStoreSearch(t *testing.T) {
	s := newTestHNSW(t)

	results, err := s.Search(context.Background(), unit(1, 0, 0, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, s.Count())
}

func TestHNSWSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	s := newTestHNSW(t)
	require.NoError(t, s.Add(context.Background(),
		[]string{"a", "b"},
		[][]float32{unit(1, 0, 0, 0), unit(0, 0, 1, 0)}))
	require.NoError(t, s.Save(path))

	loaded, err := NewHNSWStore(DefaultVectorStoreConfig(testDims))
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	results, err := loaded.Search(context.Background(), unit(0, 0, 1, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestReadHNSWStoreDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	// Missing store reads as zero, meaning fresh start.
	dims, err := ReadHNSWStoreDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 0, dims)

	s := newTestHNSW(t)
	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{unit(1, 0, 0, 0)}))
	require.NoError(t, s.Save(path))

	dims, err = ReadHNSWStoreDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, testDims, dims)
}

func TestHNSWClosedStoreRejectsOperations(t *testing.T) {
	s := newTestHNSW(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	require.Error(t, s.Add(context.Background(), []string{"a"}, [][]float32{unit(1, 0, 0, 0)}))
	_, err := s.Search(context.Background(), unit(1, 0, 0, 0), 1)
	require.Error(t, err)
	assert.Equal(t, 0, s.Count())
	assert.Nil(t, s.AllIDs())
	assert.False(t, s.Contains("a"))
}

func TestDistanceToScore(t *testing.T) {
	assert.InDelta(t, 1.0, float64(distanceToScore(0, "cos")), 1e-6)
	assert.InDelta(t, 0.5, float64(distanceToScore(1, "cos")), 1e-6)
	assert.InDelta(t, 0.0, float64(distanceToScore(2, "cos")), 1e-6)
	assert.InDelta(t, 1.0, float64(distanceToScore(0, "l2")), 1e-6)
	assert.InDelta(t, 0.5, float64(distanceToScore(1, "l2")), 1e-6)
}

func TestNormalizeVectorInPlace(t *testing.T) {
	v := []float32{3, 4, 0, 0}
	normalizeVectorInPlace(v)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	zero := []float32{0, 0, 0, 0}
	normalizeVectorInPlace(zero) // must not divide by zero
	assert.Equal(t, []float32{0, 0, 0, 0}, zero)
}
