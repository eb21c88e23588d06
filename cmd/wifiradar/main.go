package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/wifiradar/internal/api"
	"github.com/banshee-data/wifiradar/internal/broadcast"
	"github.com/banshee-data/wifiradar/internal/capture"
	"github.com/banshee-data/wifiradar/internal/config"
	"github.com/banshee-data/wifiradar/internal/db"
	"github.com/banshee-data/wifiradar/internal/devices"
	"github.com/banshee-data/wifiradar/internal/snapshot"
	"github.com/banshee-data/wifiradar/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	configPath = flag.String("config", "", "Path to a JSON config file (defaults apply when empty)")
	source     = flag.String("source", "synthetic", "Frame source: synthetic, serial or pcap")
	serialPort = flag.String("serial-port", "/dev/ttyUSB0", "Serial port of the sniffer (source=serial)")
	baudRate   = flag.Int("baud", 115200, "Serial baud rate (source=serial)")
	iface      = flag.String("iface", "", "Monitor-mode interface to capture on (source=pcap)")
	pcapFile   = flag.String("pcap-file", "", "Radiotap pcap file to replay (source=pcap)")
	bpfFilter  = flag.String("bpf", "", "Optional BPF filter (source=pcap)")
	dbPath     = flag.String("db", "", "SQLite archive of broadcast snapshots (disabled when empty)")
	retention  = flag.Duration("retention", 7*24*time.Hour, "How long archived sightings are kept (0 keeps everything)")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func loadConfig(path string) (*config.RadarConfig, error) {
	if path == "" {
		return config.EmptyRadarConfig(), nil
	}
	return config.LoadRadarConfig(path)
}

// newSource builds the frame source selected on the command line.
func newSource(kind string) (capture.Source, error) {
	switch kind {
	case "synthetic":
		return capture.NewSyntheticSource(capture.DefaultSyntheticConfig(), nil), nil
	case "serial":
		if *serialPort == "" {
			return nil, errors.New("-serial-port is required for source=serial")
		}
		s, err := capture.OpenSerialSource(*serialPort, capture.PortOptions{BaudRate: *baudRate})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "pcap":
		s, err := capture.NewPCAPSource(capture.PCAPConfig{
			Interface: *iface,
			File:      *pcapFile,
			BPFFilter: *bpfFilter,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown source %q (want synthetic, serial or pcap)", kind)
	}
}

// Main
func main() {
	flag.Parse()

	if *showVer {
		fmt.Println("wifiradar " + version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("wifiradar %s: channel=%d ssid=%q capacity=%d policy=%s stale=%s interval=%s",
		version.Version, cfg.GetChannel(), cfg.GetSSID(), cfg.GetCapacity(),
		cfg.GetEvictionPolicy(), cfg.GetStaleWindow(), cfg.GetBroadcastInterval())

	src, err := newSource(*source)
	if err != nil {
		log.Fatalf("failed to create %s source: %v", *source, err)
	}

	table := devices.NewTable(cfg.TableConfig())
	ingestor := capture.NewIngestor(table, nil)
	hub := broadcast.NewHub(0)

	var archive *db.DB
	var tickerOpts []snapshot.TickerOption
	tickerOpts = append(tickerOpts, snapshot.WithInterval(cfg.GetBroadcastInterval()))
	if *dbPath != "" {
		archive, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer archive.Close()

		session, err := archive.StartSession(time.Now(), *source, cfg.GetChannel(), cfg.GetCapacity(), cfg.GetEvictionPolicy().String())
		if err != nil {
			log.Fatalf("failed to start archive session: %v", err)
		}
		tickerOpts = append(tickerOpts, snapshot.WithRecorder(session))
	}

	builder := snapshot.NewBuilder(table, cfg.SignalModel(), cfg.GetStaleWindow())
	ticker := snapshot.NewTicker(builder, hub, tickerOpts...)

	// Create a wait group for the capture, broadcast, archive and HTTP routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// capture routine: a failing source takes the whole process down so a
	// supervisor can restart it
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := src.Run(ctx, ingestor.Handler()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("capture source failed: %v", err)
			stop()
		}
		log.Print("capture routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ticker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("broadcast ticker failed: %v", err)
		}
		hub.Close()
		log.Print("broadcast routine terminated")
	}()

	if archive != nil && *retention > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pruneArchive(ctx, archive, *retention)
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		srv := api.NewServer(api.Options{
			Table:   table,
			Capture: ingestor,
			Hub:     hub,
			Config:  cfg,
			Archive: archive,
			Source:  *source,
		})
		mux := srv.ServeMux()
		srv.AttachDebugRoutes(mux)
		if archive != nil {
			if err := archive.AttachAdminRoutes(mux); err != nil {
				log.Printf("failed to attach archive admin routes: %v", err)
			}
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		// Shutdown does not wait for hijacked websocket connections; they
		// exit when the hub closes.
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// pruneArchive drops sightings older than keep, once at start and then hourly.
func pruneArchive(ctx context.Context, archive *db.DB, keep time.Duration) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := archive.PruneBefore(time.Now().Add(-keep))
		if err != nil {
			log.Printf("failed to prune archive: %v", err)
		} else if n > 0 {
			log.Printf("pruned %d archived sightings older than %s", n, keep)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
