// internal/requestinfo/requestinfo_test.go
//
// Unit-tests for request enrichment: device bucketing, country override
// precedence, and the tracking flag.

package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ouhud/qrlink/internal/auth"
)

const (
	uaIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	uaAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"
	uaMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

func TestCollect_DeviceBuckets(t *testing.T) {
	cases := []struct {
		ua   string
		want string
	}{
		{uaIPhone, DeviceIOS},
		{uaAndroid, DeviceAndroid},
		{uaMac, DeviceDesktop},
		{"", DeviceOther},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/d/abc", nil)
		req.Header.Set("User-Agent", tc.ua)
		if got := Collect(req).Device; got != tc.want {
			t.Errorf("Device for %.30q = %q, want %q", tc.ua, got, tc.want)
		}
	}
}

func TestCollect_CountryPrecedence(t *testing.T) {
	// Query override beats the X-Country header.
	req := httptest.NewRequest(http.MethodGet, "/d/abc?country=fr", nil)
	req.Header.Set("X-Country", "de")
	if got := Collect(req).Country; got != "FR" {
		t.Fatalf("Country = %q, want FR", got)
	}

	// Header is next in line; result is always upper-cased.
	req = httptest.NewRequest(http.MethodGet, "/d/abc", nil)
	req.Header.Set("X-Country", "at")
	if got := Collect(req).Country; got != "AT" {
		t.Fatalf("Country = %q, want AT", got)
	}

	// Without an override or a GeoIP database the country stays empty.
	req = httptest.NewRequest(http.MethodGet, "/d/abc", nil)
	if got := Collect(req).Country; got != "" {
		t.Fatalf("Country = %q, want empty", got)
	}
}

func TestCollect_TrackOverride(t *testing.T) {
	for q, want := range map[string]bool{
		"track=1": true, "track=true": true, "track=yes": true,
		"track=0": false, "track=": false, "": false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/d/abc?"+q, nil)
		if got := Collect(req).TrackOverride; got != want {
			t.Errorf("TrackOverride for %q = %v, want %v", q, got, want)
		}
	}
}

func TestCollect_ViewerFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/d/abc", nil)
	req = req.WithContext(auth.WithUser(req.Context(), 42))
	if got := Collect(req).ViewerID; got != 42 {
		t.Fatalf("ViewerID = %d, want 42", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("clientIP = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if got := clientIP(req); got != "198.51.100.7" {
		t.Fatalf("clientIP with XFF = %q", got)
	}
}

func TestEnrichStoresInfo(t *testing.T) {
	var got *Info
	h := Enrich(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/d/abc", nil)
	req.Header.Set("User-Agent", uaIPhone)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("Enrich did not store Info in context")
	}
	if got.Device != DeviceIOS || got.PrimaryLang != "de-de" {
		t.Fatalf("unexpected Info: %+v", got)
	}
}
