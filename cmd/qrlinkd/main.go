// cmd/qrlinkd/main.go
//
// qrlink – dynamic QR resolver, HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load config: YAML + env overlay, Vault references resolved inline.
//     A missing or malformed envelope master secret aborts right here;
//     the resolver never boots with an improvised key.
//
//  4. Open the database, the GeoIP reader (optional), and the file store.
//
//  5. Start the telemetry sink (buffered channel, background writers).
//
//  6. Mount routes: /d/{slug}, /d/{slug}/convert, and Prometheus /metrics,
//     wrapped in security headers and optional HTTPS enforcement.
//
//  7. Serve until SIGINT/SIGTERM, then drain in-flight requests and flush
//     the telemetry queue.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ouhud/qrlink/internal/config"
	"github.com/ouhud/qrlink/internal/database"
	"github.com/ouhud/qrlink/internal/envelope"
	"github.com/ouhud/qrlink/internal/filestore"
	"github.com/ouhud/qrlink/internal/logger"
	"github.com/ouhud/qrlink/internal/middleware"
	"github.com/ouhud/qrlink/internal/requestinfo"
	"github.com/ouhud/qrlink/internal/resolver"
	"github.com/ouhud/qrlink/internal/server"
	"github.com/ouhud/qrlink/internal/telemetry"
)

const serverEnvPath = "/usr/local/etc/qrlink/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY(), os.Getenv("QRLINK_DEBUG") == "1")
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config (fails fast on a bad master secret) ──────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}

	env, err := envelope.New(cfg.Crypto.MasterSecret)
	if err != nil {
		logOut.Fatalf("envelope master secret: %v", err)
	}

	//
	// ── 2.  Database connect ────────────────────────────────────────────
	//
	dsn, err := database.BuildDSN(cfg.Database.DSN, cfg.Database.Password)
	if err != nil {
		logOut.Fatalf("database dsn: %v", err)
	}
	db, err := database.Open(dsn)
	if err != nil {
		logOut.Fatalf("connect database: %v", err)
	}
	defer db.Close()
	logOut.Infow("database online")

	// Log active-code count as an early sanity check.
	var active int
	_ = db.Get(&active, `SELECT COUNT(*) FROM qr_codes WHERE active = TRUE`)
	logOut.Infow("active codes", "count", active)

	//
	// ── 3.  GeoIP, file store, telemetry sink ───────────────────────────
	//
	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			// Country targeting degrades; everything else still works.
			logOut.Warnw("geoip unavailable", "path", cfg.GeoIP.DBPath, "err", err)
		}
	}

	files := filestore.New(cfg.Storage.Dir)
	sink := telemetry.NewSink(db, cfg.Telemetry.QueueSize, cfg.Telemetry.Workers)

	//
	// ── 4.  Routes ──────────────────────────────────────────────────────
	//
	rs := resolver.New(db, env, files, sink)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", rs.Routes())

	handler := middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS,
		middleware.Security(router))

	//
	// ── 5.  Serve until signalled, then drain ───────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logOut.Errorw("server stopped", "err", err)
	}

	// Flush queued scans before the process exits.
	sink.Close()
	logOut.Infow("shutdown complete")
}
