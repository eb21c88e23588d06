package report

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wifiradar/internal/db"
	"github.com/banshee-data/wifiradar/internal/httputil"
	"github.com/banshee-data/wifiradar/internal/snapshot"
)

var t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

type fakeArchive struct {
	history map[string][]db.Sighting
	sums    []db.DeviceSummary
	err     error
}

func (f *fakeArchive) StrengthHistory(mac string, limit int) ([]db.Sighting, error) {
	return f.history[mac], f.err
}

func (f *fakeArchive) DeviceSummaries(time.Time) ([]db.DeviceSummary, error) {
	return f.sums, f.err
}

func sighting(mac string, at time.Time, strength int) db.Sighting {
	return db.Sighting{ObservedAt: at, DeviceView: snapshot.DeviceView{Address: mac, Strength: strength}}
}

func newFake() *fakeArchive {
	return &fakeArchive{
		history: map[string][]db.Sighting{
			"AA:BB:CC:DD:EE:FF": {
				sighting("AA:BB:CC:DD:EE:FF", t0.Add(-time.Hour), 10),
				sighting("AA:BB:CC:DD:EE:FF", t0, 50),
				sighting("AA:BB:CC:DD:EE:FF", t0.Add(time.Second), 55),
			},
			"02:00:00:00:00:01": {sighting("02:00:00:00:00:01", t0, 90)},
		},
		sums: []db.DeviceSummary{
			{Address: "02:00:00:00:00:01", MeanStrength: 90},
			{Address: "AA:BB:CC:DD:EE:FF", MeanStrength: 52},
			{Address: "02:00:00:00:00:09", MeanStrength: 5},
		},
	}
}

func TestCollect_TopDevices(t *testing.T) {
	series, err := Collect(newFake(), Options{Top: 2, Since: t0})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "02:00:00:00:00:01", series[0].MAC)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", series[1].MAC)
	assert.Len(t, series[1].Points, 2, "sightings before Since are dropped")
	assert.Equal(t, 55.0, series[1].Points[1].Y)
}

func TestCollect_ExplicitMACs(t *testing.T) {
	series, err := Collect(newFake(), Options{MACs: []string{"AA:BB:CC:DD:EE:FF", "02:00:00:00:00:09"}})
	require.NoError(t, err)
	require.Len(t, series, 1, "devices without sightings are skipped")
	assert.Len(t, series[0].Points, 3)
}

func TestCollect_Error(t *testing.T) {
	f := newFake()
	f.err = errors.New("database is locked")
	_, err := Collect(f, Options{})
	assert.ErrorContains(t, err, "database is locked")
}

func TestPlot(t *testing.T) {
	series, err := Collect(newFake(), Options{Since: t0.Add(-2 * time.Hour)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "strength.png")
	require.NoError(t, Plot(series, "test", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))

	assert.Error(t, Plot(nil, "empty", path))
}

func TestRemoteArchive(t *testing.T) {
	var gotWindow string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/history":
			assert.Equal(t, "AA:BB:CC:DD:EE:FF", r.URL.Query().Get("mac"))
			assert.Equal(t, "20", r.URL.Query().Get("limit"))
			httputil.WriteJSONOK(w, []db.Sighting{sighting("AA:BB:CC:DD:EE:FF", t0, 50)})
		case "/api/summary":
			gotWindow = r.URL.Query().Get("window")
			httputil.WriteJSONOK(w, []db.DeviceSummary{{Address: "AA:BB:CC:DD:EE:FF"}})
		default:
			httputil.NotFound(w, "archive disabled; start with -db")
		}
	}))
	defer srv.Close()

	ra := &RemoteArchive{BaseURL: srv.URL + "/", Client: srv.Client(), Now: func() time.Time { return t0 }}

	hist, err := ra.StrengthHistory("AA:BB:CC:DD:EE:FF", 20)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 50, hist[0].Strength)
	assert.True(t, hist[0].ObservedAt.Equal(t0))

	sums, err := ra.DeviceSummaries(t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "1h0m0s", gotWindow)
}
