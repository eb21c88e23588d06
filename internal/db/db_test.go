package db

import (
	"compress/gzip"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wifiradar/internal/snapshot"
	"github.com/banshee-data/wifiradar/internal/testutil"
)

var t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	testutil.QuietLogs(t)
	db, err := NewDB(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func view(mac string, distance float64, angle, strength int) snapshot.DeviceView {
	return snapshot.DeviceView{Address: mac, Distance: distance, Angle: angle, Strength: strength}
}

func TestNewDB_Migrates(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// A second run is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	_, err = db.StartSession(t0, "synthetic", 6, 20, "drop")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	sessions, err := db.Sessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSession_RecordSnapshot(t *testing.T) {
	db := newTestDB(t)
	s, err := db.StartSession(t0, "synthetic", 6, 20, "drop")
	require.NoError(t, err)
	assert.Len(t, s.Info().ID, 36)

	require.NoError(t, s.RecordSnapshot(t0, snapshot.Snapshot{}))
	require.NoError(t, s.RecordSnapshot(t0.Add(time.Second), snapshot.Snapshot{Devices: []snapshot.DeviceView{
		view("AA:BB:CC:DD:EE:FF", 2.7, 195, 50),
		view("02:00:00:00:00:01", 0.8, 3, 91),
	}}))
	require.NoError(t, s.RecordSnapshot(t0.Add(2*time.Second), snapshot.Snapshot{Devices: []snapshot.DeviceView{
		view("AA:BB:CC:DD:EE:FF", 3.1, 195, 40),
	}}))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sightings`).Scan(&n))
	assert.Equal(t, 3, n, "empty snapshot writes nothing")

	hist, err := db.StrengthHistory("AA:BB:CC:DD:EE:FF", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 50, hist[0].Strength)
	assert.Equal(t, 40, hist[1].Strength)
	assert.Equal(t, t0.Add(2*time.Second), hist[1].ObservedAt)
	assert.Equal(t, s.Info().ID, hist[0].SessionID)

	hist, err = db.StrengthHistory("AA:BB:CC:DD:EE:FF", 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 40, hist[0].Strength, "limit keeps the most recent")
}

func TestDeviceSummaries(t *testing.T) {
	db := newTestDB(t)
	s, err := db.StartSession(t0, "synthetic", 6, 20, "drop")
	require.NoError(t, err)

	for i, strength := range []int{40, 60, 50} {
		require.NoError(t, s.RecordSnapshot(t0.Add(time.Duration(i)*time.Second), snapshot.Snapshot{Devices: []snapshot.DeviceView{
			view("AA:BB:CC:DD:EE:FF", float64(i+1), 195, strength),
			view("02:00:00:00:00:01", 0.5, 3, 90),
		}}))
	}

	sums, err := db.DeviceSummaries(t0)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, "02:00:00:00:00:01", sums[0].Address, "strongest first")
	assert.InDelta(t, 90, sums[0].MeanStrength, 1e-9)
	assert.InDelta(t, 0, sums[0].StdDevStrength, 1e-9)

	aa := sums[1]
	assert.Equal(t, 3, aa.Sightings)
	assert.InDelta(t, 50, aa.MeanStrength, 1e-9)
	assert.InDelta(t, 10, aa.StdDevStrength, 1e-9)
	assert.InDelta(t, 2, aa.MedianDistance, 1e-9)
	assert.Equal(t, t0, aa.FirstSeen)
	assert.Equal(t, t0.Add(2*time.Second), aa.LastSeen)

	sums, err = db.DeviceSummaries(t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, sums)
}

func TestPruneBefore(t *testing.T) {
	db := newTestDB(t)
	s, err := db.StartSession(t0, "synthetic", 6, 20, "drop")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordSnapshot(t0.Add(time.Duration(i)*time.Minute), snapshot.Snapshot{Devices: []snapshot.DeviceView{
			view("AA:BB:CC:DD:EE:FF", 1, 195, 50),
		}}))
	}
	n, err := db.PruneBefore(t0.Add(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAdminRoutes_Backup(t *testing.T) {
	db := newTestDB(t)
	_, err := db.StartSession(t0, "synthetic", 6, 20, "drop")
	require.NoError(t, err)

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	rec := testutil.Serve(mux, testutil.NewLocalRequest(http.MethodGet, "/debug/backup"))

	require.Equal(t, http.StatusOK, rec.Code)
	gz, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(body[:16]))
}
