// Package api serves the sensor's HTTP surface: the live snapshot feed,
// status and archive queries.
package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/wifiradar/internal/broadcast"
	"github.com/banshee-data/wifiradar/internal/capture"
	"github.com/banshee-data/wifiradar/internal/config"
	"github.com/banshee-data/wifiradar/internal/db"
	"github.com/banshee-data/wifiradar/internal/devices"
	"github.com/banshee-data/wifiradar/internal/httputil"
	"github.com/banshee-data/wifiradar/internal/monitoring"
	"github.com/banshee-data/wifiradar/internal/signalmodel"
	"github.com/banshee-data/wifiradar/internal/timeutil"
	"github.com/banshee-data/wifiradar/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// emptySnapshot is served before the first tick.
var emptySnapshot = []byte(`{"devices":[]}`)

// DeviceTable is the read side of devices.Table the server needs.
type DeviceTable interface {
	Records() []devices.Record
	Len() int
	Capacity() int
	Policy() devices.Policy
	Stats() devices.Stats
}

// CaptureStats reports frame counters.
type CaptureStats interface {
	Stats() capture.IngestStats
}

type Server struct {
	table   DeviceTable
	capture CaptureStats
	hub     *broadcast.Hub
	cfg     *config.RadarConfig
	archive *db.DB
	model   signalmodel.Model
	source  string
	clock   timeutil.Clock
	started time.Time
}

// Options wires the server to the running sensor. Archive may be nil.
type Options struct {
	Table   DeviceTable
	Capture CaptureStats
	Hub     *broadcast.Hub
	Config  *config.RadarConfig
	Archive *db.DB
	Source  string
	Clock   timeutil.Clock
}

func NewServer(o Options) *Server {
	clock := o.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	cfg := o.Config
	if cfg == nil {
		cfg = config.EmptyRadarConfig()
	}
	return &Server{
		table:   o.Table,
		capture: o.Capture,
		hub:     o.Hub,
		cfg:     cfg,
		archive: o.Archive,
		model:   cfg.SignalModel(),
		source:  o.Source,
		clock:   clock,
		started: clock.Now(),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack lets websocket upgrades pass through the middleware.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	lrw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 100 && statusCode < 200:
		return colorCyan + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/devices", s.showDevices)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/history", s.showHistory)
	mux.HandleFunc("/api/summary", s.showSummary)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/events", s.hub.ServeSSE)
	mux.HandleFunc("/ws", s.hub.ServeWS)
	return mux
}

// showDevices returns the payload most recently broadcast, byte for byte.
func (s *Server) showDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	payload := s.hub.Latest()
	if payload == nil {
		payload = emptySnapshot
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(payload)
}

// Status is the body of /api/status.
type Status struct {
	Version   string              `json:"version"`
	GitSHA    string              `json:"git_sha"`
	BuildTime string              `json:"build_time"`
	Uptime    string              `json:"uptime"`
	Source    string              `json:"source"`
	Table     TableStatus         `json:"table"`
	Capture   capture.IngestStats `json:"capture"`
	Broadcast broadcast.Stats     `json:"broadcast"`
	Archive   bool                `json:"archive"`
	Config    *config.RadarConfig `json:"config"`
}

type TableStatus struct {
	Occupancy int           `json:"occupancy"`
	Live      int           `json:"live"`
	Capacity  int           `json:"capacity"`
	Policy    string        `json:"policy"`
	Stats     devices.Stats `json:"stats"`
}

func (s *Server) status() Status {
	now := s.clock.Now()
	window := s.cfg.GetStaleWindow()
	live := 0
	for _, rec := range s.table.Records() {
		if now.Sub(rec.LastSeen) < window {
			live++
		}
	}
	st := Status{
		Version:   version.Version,
		GitSHA:    version.GitSHA,
		BuildTime: version.BuildTime,
		Uptime:    s.clock.Since(s.started).Truncate(time.Second).String(),
		Source:    s.source,
		Table: TableStatus{
			Occupancy: s.table.Len(),
			Live:      live,
			Capacity:  s.table.Capacity(),
			Policy:    s.table.Policy().String(),
			Stats:     s.table.Stats(),
		},
		Broadcast: s.hub.Stats(),
		Archive:   s.archive != nil,
		Config:    s.cfg.Redacted(),
	}
	if s.capture != nil {
		st.Capture = s.capture.Stats()
	}
	return st
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.status())
}

func (s *Server) requireArchive(w http.ResponseWriter) bool {
	if s.archive == nil {
		httputil.NotFound(w, "archive disabled; start with -db")
		return false
	}
	return true
}

func (s *Server) showHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireArchive(w) {
		return
	}
	addr, err := devices.ParseAddr(r.URL.Query().Get("mac"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit := 300
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	hist, err := s.archive.StrengthHistory(addr.String(), limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if hist == nil {
		hist = []db.Sighting{}
	}
	httputil.WriteJSONOK(w, hist)
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireArchive(w) {
		return
	}
	window := time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			httputil.BadRequest(w, "window must be a positive duration")
			return
		}
		window = d
	}
	sums, err := s.archive.DeviceSummaries(s.clock.Now().Add(-window))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sums)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireArchive(w) {
		return
	}
	sessions, err := s.archive.Sessions()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if sessions == nil {
		sessions = []db.SessionInfo{}
	}
	httputil.WriteJSONOK(w, sessions)
}
