// Command strength-plot renders the archived strength of devices over time
// as a PNG, reading either an archive file or a running sensor.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/banshee-data/wifiradar/internal/db"
	"github.com/banshee-data/wifiradar/internal/devices"
	"github.com/banshee-data/wifiradar/internal/report"
	"github.com/banshee-data/wifiradar/internal/security"
)

var (
	dbPath = flag.String("db", "", "SQLite archive written by wifiradar -db")
	server = flag.String("url", "", "Base URL of a running wifiradar (used when -db is empty)")
	macs   = flag.String("mac", "", "Comma-separated addresses to plot (default: strongest devices)")
	top    = flag.Int("top", 5, "Number of devices to plot when -mac is empty")
	window = flag.Duration("window", time.Hour, "How far back to plot")
	limit  = flag.Int("limit", 0, "Maximum points per device (0 for all)")
	out    = flag.String("out", "", "Output image, .png, .svg or .pdf (default strength.png, or strength-<mac>.png for one -mac)")
)

func parseMACs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		addr, err := devices.ParseAddr(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, addr.String())
	}
	return out, nil
}

// outputPath picks the image path and refuses ones outside the working or
// temp directory.
func outputPath(out string, selected []string) (string, error) {
	if out == "" {
		out = "strength.png"
		if len(selected) == 1 {
			out = "strength-" + security.SanitizeFilename(selected[0]) + ".png"
		}
	}
	if err := security.ValidateExportPath(out); err != nil {
		return "", err
	}
	return out, nil
}

func openArchive() (report.Archive, func(), error) {
	switch {
	case *dbPath != "":
		archive, err := db.NewDB(*dbPath)
		if err != nil {
			return nil, nil, err
		}
		return archive, func() { archive.Close() }, nil
	case *server != "":
		return &report.RemoteArchive{BaseURL: *server}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("one of -db or -url is required")
	}
}

func main() {
	flag.Parse()

	selected, err := parseMACs(*macs)
	if err != nil {
		log.Fatalf("invalid -mac: %v", err)
	}

	path, err := outputPath(*out, selected)
	if err != nil {
		log.Fatalf("invalid -out: %v", err)
	}

	archive, closeArchive, err := openArchive()
	if err != nil {
		log.Fatalf("failed to open archive: %v", err)
	}
	defer closeArchive()

	since := time.Now().Add(-*window)
	series, err := report.Collect(archive, report.Options{
		MACs:  selected,
		Top:   *top,
		Since: since,
		Limit: *limit,
	})
	if err != nil {
		log.Fatalf("failed to load history: %v", err)
	}
	if len(series) == 0 {
		log.Fatalf("no sightings in the last %s", *window)
	}

	title := fmt.Sprintf("Signal strength since %s", since.Format(time.RFC3339))
	if err := report.Plot(series, title, path); err != nil {
		log.Fatalf("failed to plot: %v", err)
	}
	log.Printf("wrote %d devices to %s", len(series), path)
}
