// internal/telemetry/sink.go
//
// Best-effort scan and conversion recording.
//
/*
Context
--------
Analytics writes must never slow down or break a redirect.  The sink
therefore decouples them from the request path with a buffered channel and
a small worker pool:

	RecordScan / RecordConversion  →  non-blocking enqueue
	workers                        →  INSERT via sqlx, errors logged + counted

A full queue drops the event (counted in Prometheus); an insert failure is
logged and discarded.  Nothing is retried, and nothing propagates back to
the caller.  The one ordering guarantee the resolver relies on: response
correctness never depends on telemetry success.

Notes
-----
  • Close stops intake and drains what is already queued.
  • Column truncation mirrors the qr_scans / qr_conversions schema.
  • Oxford commas, two spaces after periods.
*/
package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ouhud/qrlink/internal/metrics"
	"github.com/ouhud/qrlink/internal/record"
	"github.com/ouhud/qrlink/internal/requestinfo"
)

// Schema column widths; longer values are truncated, not rejected.
const (
	maxDeviceLen    = 50
	maxUserAgentLen = 255
)

// event is one queued analytics row.
type event interface {
	insert(ctx context.Context, db *sqlx.DB) error
	name() string
}

// Sink buffers events and persists them in the background.
type Sink struct {
	db     *sqlx.DB
	queue  chan event
	group  *errgroup.Group
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewSink starts workers goroutines draining a queue of queueSize events.
func NewSink(db *sqlx.DB, queueSize, workers int) *Sink {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	s := &Sink{
		db:     db,
		queue:  make(chan event, queueSize),
		group:  g,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error { s.drain(ctx); return nil })
	}
	return s
}

// drain persists queued events until the queue is closed and empty.
func (s *Sink) drain(ctx context.Context) {
	for ev := range s.queue {
		// Each insert gets its own deadline so a stalled database cannot
		// wedge the worker forever.
		insertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := ev.insert(insertCtx, s.db); err != nil {
			metrics.TelemetryErrorsTotal.Inc()
			zap.S().Warnw("telemetry insert failed", "event", ev.name(), "err", err)
		}
		cancel()
	}
}

// enqueue offers ev to the queue without ever blocking the caller.
func (s *Sink) enqueue(ev event) {
	select {
	case s.queue <- ev:
	default:
		metrics.TelemetryDroppedTotal.Inc()
		zap.S().Debugw("telemetry queue full, event dropped", "event", ev.name())
	}
}

// Close stops intake and waits for queued events to flush.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		_ = s.group.Wait()
		s.cancel()
	})
}

/*──────────────────────────── scan events ──────────────────────────────────*/

type scanEvent struct {
	qrID      int64
	device    string
	location  string
	userAgent string
	at        time.Time
}

func (e scanEvent) name() string { return "scan" }

func (e scanEvent) insert(ctx context.Context, db *sqlx.DB) error {
	const q = `
        INSERT INTO qr_scans (qr_id, device, location, user_agent, timestamp)
        VALUES (?, ?, ?, ?, ?);`
	_, err := db.ExecContext(ctx, q, e.qrID, e.device, e.location, e.userAgent, e.at)
	return err
}

// RecordScan queues one scan row for rec.  Best-effort: the call returns
// immediately and any downstream failure is swallowed.
func (s *Sink) RecordScan(rec *record.Record, info *requestinfo.Info) {
	metrics.ScanEventsTotal.Inc()
	s.enqueue(scanEvent{
		qrID:      rec.ID,
		device:    truncate(info.UserAgent, maxDeviceLen),
		location:  info.IP,
		userAgent: truncate(info.UserAgent, maxUserAgentLen),
		at:        info.Now,
	})
}

/*──────────────────────────── conversion events ────────────────────────────*/

type conversionEvent struct {
	qrID      int64
	slug      string
	eventType string
	value     *float64
	currency  *string
	meta      string
	ip        string
	userAgent string
	at        time.Time
}

func (e conversionEvent) name() string { return "conversion" }

func (e conversionEvent) insert(ctx context.Context, db *sqlx.DB) error {
	const q = `
        INSERT INTO qr_conversions
               (qr_id, slug, event_type, value, currency, meta_json,
                ip_address, user_agent, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := db.ExecContext(ctx, q,
		e.qrID, e.slug, e.eventType, e.value, e.currency, e.meta,
		e.ip, e.userAgent, e.at)
	return err
}

// RecordConversion queues one conversion row.  eventType is "visit" for
// the implicit resolve-path event; the /convert endpoint passes arbitrary
// caller-supplied names plus optional value and currency.
func (s *Sink) RecordConversion(rec *record.Record, info *requestinfo.Info, eventType string, value *float64, currency *string) {
	meta, _ := json.Marshal(map[string]string{
		"country": info.Country,
		"lang":    info.AcceptLanguage,
		"device":  info.Device,
	})

	metrics.ConversionEventsTotal.Inc()
	s.enqueue(conversionEvent{
		qrID:      rec.ID,
		slug:      rec.Slug,
		eventType: eventType,
		value:     value,
		currency:  currency,
		meta:      string(meta),
		ip:        info.IP,
		userAgent: truncate(info.UserAgent, maxUserAgentLen),
		at:        info.Now,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
