//
//  internal/requestinfo/requestinfo.go
//
//  Per-request metadata consumed by targeting, telemetry, and the
//  resolver: coarse device class, country, language, client IP, and the
//  tracking override.  Info is inert data.  It contains no pointers to
//  database handles or large buffers, so it is safe to log or JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"

	"github.com/ouhud/qrlink/internal/cache"
)

//
//  -----------------------------
//  Device classes
//  -----------------------------
//

// Targeting rules and wallet branching only ever distinguish these four
// buckets, so the full uasurfer taxonomy is collapsed at parse time.
const (
	DeviceIOS     = "ios"
	DeviceAndroid = "android"
	DeviceDesktop = "desktop"
	DeviceOther   = "other"
)

//
//  -----------------------------
//  Struct definition
//  -----------------------------
//

// Info carries everything the resolve pipeline reads from a request.
type Info struct {
	IP             string
	UserAgent      string // entire User-Agent header
	AcceptLanguage string // entire Accept-Language header
	PrimaryLang    string // first tag from Accept-Language ("en", "de", ...)
	Device         string // one of the Device* constants
	IsBot          bool   // true if UA matches a crawler signature
	Country        string // ISO code: query override > X-Country > GeoIP
	TrackOverride  bool   // ?track=1|true|yes forces telemetry
	ViewerID       int64  // authenticated caller, 0 when anonymous
	Now            time.Time
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a singleton MaxMind handle.  It is safe for concurrent
// reads, which is all we ever perform.  Nil when no database is
// configured; country resolution then degrades to header/query input.
var geoReader *geoip2.Reader

// geoCache memoizes IP → ISO code.  Repeat scans from the same network
// skip the reader entirely.  Misses are cached too, as empty strings.
var geoCache = cache.New(4096)

// InitGeo opens the GeoLite2 database at startup.  The database is
// optional: without it, rules that filter on countries only match
// requests carrying an explicit override.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoReader = r
	return nil
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// deviceBucket collapses the parsed UA into the four targeting classes.
// OS beats form factor: an iPad is "ios" before it is a tablet.
func deviceBucket(ua *surfer.UserAgent) string {
	switch ua.OS.Name {
	case surfer.OSiOS:
		return DeviceIOS
	case surfer.OSAndroid:
		return DeviceAndroid
	}
	if ua.DeviceType == surfer.DeviceComputer {
		return DeviceDesktop
	}
	return DeviceOther
}

// resolveCountry prefers explicit input over GeoIP: the ?country= query
// override first, then the trusted X-Country header an edge proxy may
// inject, and only then the MaxMind lookup.
func resolveCountry(r *http.Request, ip string) string {
	if c := r.URL.Query().Get("country"); c != "" {
		return strings.ToUpper(c)
	}
	if c := r.Header.Get("X-Country"); c != "" {
		return strings.ToUpper(c)
	}
	if geoReader == nil {
		return ""
	}
	if hit, ok := geoCache.Get(ip); ok {
		return hit.(string)
	}
	code := lookupCountry(ip)
	geoCache.Add(ip, code)
	return code
}

func lookupCountry(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	rec, err := geoReader.Country(parsed)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag := strings.TrimSpace(strings.Split(al, ",")[0])
	if i := strings.Index(tag, ";"); i != -1 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}
