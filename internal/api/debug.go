package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/wifiradar/internal/httputil"
	"github.com/banshee-data/wifiradar/internal/snapshot"
)

// AttachDebugRoutes mounts the sensor's pages on the tsweb debug index.
func (s *Server) AttachDebugRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("devices", "Every device table slot, stale ones included", s.handleDeviceDump)
	debug.HandleFunc("radar", "Live radar chart", s.handleRadarChart)
	debug.HandleFunc("tail", "Stream broadcast snapshots as server-sent events", s.hub.ServeSSE)
}

func (s *Server) handleDeviceDump(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	window := s.cfg.GetStaleWindow()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	st := s.status()
	fmt.Fprintf(w, "occupancy %d/%d policy=%s inserted=%d updated=%d evicted=%d dropped=%d ignored=%d\n",
		st.Table.Occupancy, st.Table.Capacity, st.Table.Policy,
		st.Table.Stats.Inserted, st.Table.Stats.Updated, st.Table.Stats.Evicted,
		st.Table.Stats.Dropped, st.Table.Stats.Ignored)
	fmt.Fprintf(w, "frames received=%d accepted=%d wrong_kind=%d malformed=%d\n\n",
		st.Capture.Received, st.Capture.Accepted, st.Capture.WrongKind, st.Capture.Malformed)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tMAC\tRSSI\tAGE\tSTATE\tDIST\tANGLE\tSTRENGTH")
	for i, rec := range s.table.Records() {
		age := now.Sub(rec.LastSeen)
		state := "live"
		if age >= window {
			state = "stale"
		}
		v := snapshot.View(s.model, rec)
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%.2f\t%d\t%d\n",
			i, v.Address, rec.Strength, age.Round(100*time.Millisecond), state, v.Distance, v.Angle, v.Strength)
	}
	tw.Flush()
}

// handleRadarChart renders the latest snapshot as a polar plot projected
// onto XY, the same picture a viewer draws.
func (s *Server) handleRadarChart(w http.ResponseWriter, r *http.Request) {
	snap, err := s.latestSnapshot()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	pad := s.model.MaxDistance
	if pad <= 0 {
		pad = 10
	}
	data := make([]opts.ScatterData, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		theta := float64(d.Angle) * math.Pi / 180.0
		data = append(data, opts.ScatterData{
			Name:  d.Address,
			Value: []interface{}{d.Distance * math.Cos(theta), d.Distance * math.Sin(theta), d.Strength},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "WiFi Radar", Theme: "dark", Width: "800px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: "WiFi Radar", Subtitle: fmt.Sprintf("devices=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        100,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("devices", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) latestSnapshot() (snapshot.Snapshot, error) {
	payload := s.hub.Latest()
	if payload == nil {
		return snapshot.Snapshot{}, nil
	}
	return snapshot.Unmarshal(payload)
}
