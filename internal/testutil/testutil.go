// Package testutil provides shared test helpers.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/banshee-data/wifiradar/internal/devices"
	"github.com/banshee-data/wifiradar/internal/monitoring"
)

// LoopbackAddr is a RemoteAddr that tsweb treats as a local debug client.
const LoopbackAddr = "127.0.0.1:40000"

// QuietLogs mutes the monitoring logger for the duration of the test.
func QuietLogs(t testing.TB) {
	t.Helper()
	original := monitoring.Logger()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(original) })
}

// CaptureLogs redirects the monitoring logger for the duration of the test. The
// returned func reports the lines logged so far.
func CaptureLogs(t testing.TB) func() []string {
	t.Helper()
	var (
		mu    sync.Mutex
		lines []string
	)
	original := monitoring.Logger()
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(original) })
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

// MustAddr parses a hardware address or fails the test.
func MustAddr(t testing.TB, s string) devices.Addr {
	t.Helper()
	a, err := devices.ParseAddr(s)
	if err != nil {
		t.Fatalf("bad address %q: %v", s, err)
	}
	return a
}

// NewLocalRequest creates a test request that appears to come from
// localhost, so tsweb debug pages will serve it.
func NewLocalRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = LoopbackAddr
	return req
}

// Serve runs req through h and returns the recorded response.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
