// Command mapdiff serves the point-cloud drift detection API: upload two
// background static maps, get back colored LAS (or octree) artifacts showing
// matched and extra points.
package main

import (
	"context"
	"embed"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/mapdiff/internal/api"
	"github.com/banshee-data/mapdiff/internal/convert"
	"github.com/banshee-data/mapdiff/internal/diff"
	"github.com/banshee-data/mapdiff/internal/httputil"
	"github.com/banshee-data/mapdiff/internal/runstore"
	"github.com/banshee-data/mapdiff/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS

	devMode      = flag.Bool("dev", false, "Run in dev mode (serve ./static from disk, no converter required)")
	listen       = flag.String("listen", ":8080", "Listen address")
	dbFile       = flag.String("db", "mapdiff.db", "Path to the run registry database")
	artifactsDir = flag.String("artifacts", "artifacts", "Directory for per-run output namespaces")
	epsilon      = flag.Float64("epsilon", diff.DefaultEpsilon, "Match tolerance in map units")
	converterBin = flag.String("converter", "", "Path to the PotreeConverter binary (empty serves raw LAS files)")
	retention    = flag.Duration("retention", 24*time.Hour, "Delete run artifacts older than this (0 disables)")
)

const retentionSweepInterval = 10 * time.Minute

func main() {
	flag.Parse()

	log.Printf("mapdiff %s", version.String())

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	absArtifacts, err := filepath.Abs(*artifactsDir)
	if err != nil {
		log.Fatalf("failed to resolve artifacts dir: %v", err)
	}
	if err := os.MkdirAll(absArtifacts, 0o755); err != nil {
		log.Fatalf("failed to create artifacts dir: %v", err)
	}

	store, err := runstore.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open run registry: %v", err)
	}
	defer store.Close()

	var converter convert.Converter
	if *converterBin != "" {
		converter = &convert.Potree{Bin: *converterBin}
	} else if !*devMode {
		log.Print("no -converter configured; serving raw LAS artifacts")
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// retention sweeper: reclaim old run namespaces out-of-band so requests
	// never clear a shared directory
	if *retention > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(retentionSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					pruneArtifacts(store, time.Now().Add(-*retention))
				case <-ctx.Done():
					log.Print("retention routine terminated")
					return
				}
			}
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		apiMux := api.NewServer(store, converter, absArtifacts, *epsilon).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		// generated artifacts are served straight off disk
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(absArtifacts))))

		// read the frontend from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var frontend http.Handler
		if *devMode {
			frontend = http.FileServer(http.Dir("./static"))
		} else {
			frontend = http.FileServer(http.FS(staticFiles))
		}
		mux.Handle("/", frontend)

		server := &http.Server{
			Addr:    *listen,
			Handler: httputil.AllowCORS(api.LoggingMiddleware(mux)),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// pruneArtifacts drops stale registry rows and removes their namespaces.
func pruneArtifacts(store *runstore.DB, cutoff time.Time) {
	dirs, err := store.PruneBefore(cutoff)
	if err != nil {
		log.Printf("retention prune failed: %v", err)
		return
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("failed to remove artifacts %s: %v", dir, err)
		}
	}
	if len(dirs) > 0 {
		log.Printf("retention removed %d run namespace(s)", len(dirs))
	}
}
