// internal/resolver/http.go
//
// HTTP boundary: the two public endpoints the printed QR image and its
// conversion pixel hit.
//
//	GET /d/{slug}                      resolve, kind-specific response
//	GET /d/{slug}/convert              explicit conversion event, JSON ack
//
// The error taxonomy maps here and nowhere else: not-found → 404, missing
// content → 410, missing stored file → 404, everything unexpected → 500
// with the detail kept in the log rather than the body.

package resolver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ouhud/qrlink/internal/metrics"
	"github.com/ouhud/qrlink/internal/record"
	"github.com/ouhud/qrlink/internal/requestinfo"
)

// Routes returns the chi router for the public resolve surface.  The
// requestinfo.Enrich middleware is mounted here so every handler below
// can rely on a populated Info.
func (rs *Resolver) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestinfo.Enrich)
	r.Get("/d/{slug}", rs.serveResolve)
	r.Get("/d/{slug}/convert", rs.serveConvert)
	return r
}

func (rs *Resolver) serveResolve(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	info := requestinfo.FromContext(r.Context())
	if info == nil {
		info = requestinfo.Collect(r)
	}

	q := r.URL.Query()
	opts := Options{
		VCardDownload: strings.EqualFold(q.Get("format"), "vcf") ||
			parseQueryBool(q.Get("download")),
	}

	resp, err := rs.Resolve(r.Context(), slug, info, opts)
	if err != nil {
		rs.writeError(w, slug, err)
		return
	}

	metrics.ResolveTotal.WithLabelValues(kindLabel(resp), "ok").Inc()
	resp.Write(w, r)
}

func (rs *Resolver) writeError(w http.ResponseWriter, slug string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.ResolveTotal.WithLabelValues("unknown", "not_found").Inc()
		http.Error(w, "QR code not found", http.StatusNotFound)
	case errors.Is(err, ErrContentUnavailable):
		metrics.ResolveTotal.WithLabelValues("unknown", "gone").Inc()
		http.Error(w, "This QR code no longer has content", http.StatusGone)
	case errors.Is(err, ErrFileMissing):
		metrics.ResolveTotal.WithLabelValues("unknown", "file_missing").Inc()
		http.Error(w, "File not found", http.StatusNotFound)
	default:
		metrics.ResolveTotal.WithLabelValues("unknown", "error").Inc()
		zap.S().Errorw("resolve failed", "slug", slug, "err", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// serveConvert records an explicit conversion event.  Unlike the resolve
// path, it is never suppressed: the caller opted in by hitting the
// endpoint at all.
func (rs *Resolver) serveConvert(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	info := requestinfo.FromContext(r.Context())
	if info == nil {
		info = requestinfo.Collect(r)
	}

	rec, err := record.GetActiveBySlug(r.Context(), rs.db, slug)
	if err != nil {
		if err == record.ErrNotFound {
			http.Error(w, "QR code not found", http.StatusNotFound)
			return
		}
		zap.S().Errorw("convert lookup failed", "slug", slug, "err", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	eventType := q.Get("event")
	if eventType == "" {
		eventType = "conversion"
	}

	var value *float64
	if raw := q.Get("value"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			value = &f
		}
	}
	var currency *string
	if raw := q.Get("currency"); raw != "" {
		currency = &raw
	}

	rs.sink.RecordConversion(rec, info, eventType, value, currency)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    true,
		"event": eventType,
		"slug":  slug,
	})
}

func parseQueryBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// kindLabel keeps the metric cardinality bounded: one label per response
// shape rather than per slug.
func kindLabel(resp *Response) string {
	switch {
	case resp.RedirectURL != "":
		return "redirect"
	case resp.Stream != nil:
		return "file"
	case resp.Filename != "":
		return "attachment"
	case strings.HasPrefix(resp.ContentType, "text/html"):
		return "html"
	default:
		return "plaintext"
	}
}
