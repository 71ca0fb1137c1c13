// internal/telemetry/suppress.go
//
// Decides whether a hit counts as real traffic before anything is
// recorded.  Keeps the owner's own preview clicks, health checks, and
// API-client smoke tests out of the analytics tables.

package telemetry

import (
	"strings"

	"github.com/ouhud/qrlink/internal/metrics"
	"github.com/ouhud/qrlink/internal/record"
	"github.com/ouhud/qrlink/internal/requestinfo"
)

// testIPs are loopback / local addresses that never count as traffic.
var testIPs = map[string]bool{
	"127.0.0.1": true,
	"::1":       true,
	"localhost": true,
}

// toolingAgents are HTTP-client signatures typical of manual testing.
var toolingAgents = []string{"postmanruntime", "insomnia"}

// ShouldTrack reports whether this hit may be recorded.  An explicit
// ?track= override always wins; otherwise loopback addresses, tooling
// user agents, and the record owner's own visits are suppressed.
func ShouldTrack(rec *record.Record, info *requestinfo.Info) bool {
	if info.TrackOverride {
		return true
	}

	suppressed := false
	switch {
	case testIPs[info.IP]:
		suppressed = true
	case isToolingAgent(info.UserAgent):
		suppressed = true
	case info.ViewerID != 0 && info.ViewerID == rec.UserID:
		suppressed = true
	}

	if suppressed {
		metrics.SuppressedScansTotal.Inc()
		return false
	}
	return true
}

func isToolingAgent(ua string) bool {
	ua = strings.ToLower(ua)
	if strings.HasPrefix(ua, "curl/") || strings.HasPrefix(ua, "httpie/") {
		return true
	}
	for _, sig := range toolingAgents {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}
