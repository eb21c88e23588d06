// Package report renders archived strength history as PNG line plots.
package report

import (
	"context"
	"fmt"
	"image/color"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/wifiradar/internal/db"
	"github.com/banshee-data/wifiradar/internal/httputil"
)

// Archive is the read side of the sightings archive.
type Archive interface {
	StrengthHistory(mac string, limit int) ([]db.Sighting, error)
	DeviceSummaries(since time.Time) ([]db.DeviceSummary, error)
}

// RemoteArchive reads a running sensor's archive over its HTTP API.
type RemoteArchive struct {
	BaseURL string
	Client  httputil.HTTPClient
	Now     func() time.Time
}

func (r *RemoteArchive) url(path string, q url.Values) string {
	return strings.TrimRight(r.BaseURL, "/") + path + "?" + q.Encode()
}

func (r *RemoteArchive) StrengthHistory(mac string, limit int) ([]db.Sighting, error) {
	q := url.Values{"mac": {mac}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []db.Sighting
	err := httputil.GetJSON(context.Background(), r.Client, r.url("/api/history", q), &out)
	return out, err
}

func (r *RemoteArchive) DeviceSummaries(since time.Time) ([]db.DeviceSummary, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	window := now().Sub(since)
	if window <= 0 {
		window = time.Second
	}
	var out []db.DeviceSummary
	err := httputil.GetJSON(context.Background(), r.Client, r.url("/api/summary", url.Values{"window": {window.String()}}), &out)
	return out, err
}

// Options selects what to plot.
type Options struct {
	// MACs to plot. When empty the Top strongest devices since Since are used.
	MACs  []string
	Top   int
	Since time.Time
	// Limit caps the points per device; zero means all.
	Limit int
	Title string
}

// Series is the strength history of one device.
type Series struct {
	MAC    string
	Points plotter.XYs
}

// Collect loads one Series per device selected by o. Devices without
// sightings are skipped.
func Collect(a Archive, o Options) ([]Series, error) {
	macs := o.MACs
	if len(macs) == 0 {
		sums, err := a.DeviceSummaries(o.Since)
		if err != nil {
			return nil, fmt.Errorf("load summaries: %w", err)
		}
		top := o.Top
		if top <= 0 {
			top = 5
		}
		for i := 0; i < len(sums) && i < top; i++ {
			macs = append(macs, sums[i].Address)
		}
	}

	var out []Series
	for _, mac := range macs {
		hist, err := a.StrengthHistory(mac, o.Limit)
		if err != nil {
			return nil, fmt.Errorf("load history for %s: %w", mac, err)
		}
		pts := make(plotter.XYs, 0, len(hist))
		for _, s := range hist {
			if s.ObservedAt.Before(o.Since) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(s.ObservedAt.Unix()), Y: float64(s.Strength)})
		}
		if len(pts) == 0 {
			continue
		}
		out = append(out, Series{MAC: mac, Points: pts})
	}
	return out, nil
}

// Plot draws series on one chart of strength (0-100) over time and saves it
// to path. The format follows the file extension.
func Plot(series []Series, title, path string) error {
	if len(series) == 0 {
		return fmt.Errorf("nothing to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Strength"
	p.Y.Min = 0
	p.Y.Max = 100
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04:05"}
	p.Add(plotter.NewGrid())

	colors := palette(len(series))
	for i, s := range series {
		line, err := plotter.NewLine(s.Points)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.MAC, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save strength plot: %w", err)
	}
	return nil
}

// palette spreads n colours around the hue wheel.
func palette(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		h := float64(i) / float64(n)
		colors[i] = hsv(h, 0.8, 0.9)
	}
	return colors
}

func hsv(h, s, v float64) color.Color {
	i := int(h * 6)
	f := h*6 - float64(i)
	p, q, t := v*(1-s), v*(1-f*s), v*(1-(1-f)*s)
	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
