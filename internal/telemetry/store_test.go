package telemetry

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	// The CGO driver cross-checks the telemetry schema against the
	// other SQLite implementation used elsewhere in the store tests.
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMetricsStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, InitTelemetrySchema(db))

	s, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)
	return s
}

func TestNewSQLiteMetricsStoreRequiresDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(nil)
	require.Error(t, err)
}

func TestQueryTypeCountsRoundTrip(t *testing.T) {
	s := openMetricsStore(t)

	day := "2026-08-01"
	require.NoError(t, s.SaveQueryTypeCounts(day, map[QueryType]int64{
		QueryTypeLexical:  3,
		QueryTypeSemantic: 5,
	}))
	// Saving again accumulates rather than overwriting.
	require.NoError(t, s.SaveQueryTypeCounts(day, map[QueryType]int64{
		QueryTypeLexical: 2,
	}))

	counts, err := s.GetQueryTypeCounts(day, day)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts[QueryTypeLexical])
	assert.Equal(t, int64(5), counts[QueryTypeSemantic])
}

func TestQueryTypeCountsDateRange(t *testing.T) {
	s := openMetricsStore(t)

	require.NoError(t, s.SaveQueryTypeCounts("2026-08-01", map[QueryType]int64{QueryTypeMixed: 1}))
	require.NoError(t, s.SaveQueryTypeCounts("2026-08-02", map[QueryType]int64{QueryTypeMixed: 2}))
	require.NoError(t, s.SaveQueryTypeCounts("2026-08-09", map[QueryType]int64{QueryTypeMixed: 8}))

	counts, err := s.GetQueryTypeCounts("2026-08-01", "2026-08-02")
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[QueryTypeMixed])
}

func TestTermCountsUpsertAndTop(t *testing.T) {
	s := openMetricsStore(t)

	require.NoError(t, s.UpsertTermCounts(map[string]int64{"auth": 4, "login": 9, "cache": 1}))
	require.NoError(t, s.UpsertTermCounts(map[string]int64{"auth": 6}))
	require.NoError(t, s.UpsertTermCounts(nil)) // no-op

	top, err := s.GetTopTerms(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, TermCount{Term: "auth", Count: 10}, top[0])
	assert.Equal(t, TermCount{Term: "login", Count: 9}, top[1])
}

func TestZeroResultQueriesTrimmedToHundred(t *testing.T) {
	s := openMetricsStore(t)

	for i := 0; i < 105; i++ {
		require.NoError(t, s.AddZeroResultQuery("q", time.Now()))
	}

	queries, err := s.GetZeroResultQueries(1000)
	require.NoError(t, err)
	assert.Len(t, queries, 100)
}

func TestZeroResultQueriesNewestFirst(t *testing.T) {
	s := openMetricsStore(t)

	require.NoError(t, s.AddZeroResultQuery("older", time.Now()))
	require.NoError(t, s.AddZeroResultQuery("newer", time.Now()))

	queries, err := s.GetZeroResultQueries(10)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "newer", queries[0])
}

func TestLatencyCountsRoundTrip(t *testing.T) {
	s := openMetricsStore(t)

	day := "2026-08-01"
	require.NoError(t, s.SaveLatencyCounts(day, map[LatencyBucket]int64{
		BucketP10: 7,
		BucketP50: 2,
	}))
	require.NoError(t, s.SaveLatencyCounts(day, map[LatencyBucket]int64{BucketP10: 3}))

	counts, err := s.GetLatencyCounts(day, day)
	require.NoError(t, err)
	assert.Equal(t, int64(10), counts[BucketP10])
	assert.Equal(t, int64(2), counts[BucketP50])
}

func TestCloseLeavesSharedDBOpen(t *testing.T) {
	s := openMetricsStore(t)
	require.NoError(t, s.Close())

	// The shared handle must still work after Close.
	require.NoError(t, s.UpsertTermCounts(map[string]int64{"still": 1}))
}
