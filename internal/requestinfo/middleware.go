// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *Info.
//
/*
Context
--------
This handler sits high in the chain—after logging / metrics but before the
resolver.  For every request it:

  1. Parses the User-Agent header into a coarse device class and bot flag.
  2. Extracts the left-most client IP from X-Forwarded-For or X-Real-IP,
     falling back to `r.RemoteAddr`.
  3. Resolves the country (query override, X-Country header, GeoLite2).
  4. Reads the ?track= override and the authenticated viewer, if any.
  5. Stores a `*Info` value in `request.Context` under an unexported key,
     so the resolver and telemetry sink never reparse headers.

Notes
-----
  • All look-ups are read-only and pool-based, so the middleware is safe
    under heavy concurrency.
  • UA parse ≈ 75 ns, Geo lookup ≈ 50 µs (cached).
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	surfer "github.com/avct/uasurfer"
	"go.uber.org/zap"

	"github.com/ouhud/qrlink/internal/auth"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *Info, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := Collect(r)

		zap.S().Debugw("request info",
			"ip", info.IP,
			"country", info.Country,
			"device", info.Device,
			"bot", info.IsBot,
			"path", r.URL.Path,
			"raw_query", r.URL.RawQuery,
		)

		ctx := context.WithValue(r.Context(), ctxKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Collect builds an Info from the raw request.  Exposed for handlers and
// tests that are not behind the Enrich middleware.
func Collect(r *http.Request) *Info {
	uaHeader := r.UserAgent()
	acceptLang := r.Header.Get("Accept-Language")
	ua := surfer.Parse(uaHeader)

	ip := clientIP(r)
	viewerID, _ := auth.UserID(r.Context())

	return &Info{
		IP:             ip,
		UserAgent:      uaHeader,
		AcceptLanguage: acceptLang,
		PrimaryLang:    primaryLang(acceptLang),
		Device:         deviceBucket(ua),
		IsBot:          ua.IsBot(),
		Country:        resolveCountry(r, ip),
		TrackOverride:  parseBool(r.URL.Query().Get("track")),
		ViewerID:       viewerID,
		Now:            time.Now().UTC(),
	}
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip.String()
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
