// internal/resolver/deeplink.go
//
// app_deeplink bounce page.
//
// Opening a custom URI scheme from a redirect is unreliable, so the
// resolver answers with a tiny HTML page that attempts the deep link via
// script and falls back after 1.5 seconds to the platform store URL (when
// one matches the device) or the web fallback.  Without a deep link at all
// the record degrades to a plain redirect.

package resolver

import (
	"html/template"
	"strings"

	"github.com/ouhud/qrlink/internal/record"
	"github.com/ouhud/qrlink/internal/requestinfo"
)

// fallbackDelayMS is the client-side window the deep link gets before the
// page bounces to the fallback URL.
const fallbackDelayMS = 1500

var bouncePage = template.Must(template.New("bounce").Parse(`<!doctype html>
<html><head><meta name="viewport" content="width=device-width, initial-scale=1">
<title>Opening app...</title></head>
<body style="font-family:system-ui;padding:24px">
  <h2>Opening the app...</h2>
  <p>If nothing happens, <a href="{{.Fallback}}">tap here</a>.</p>
  <script>
    window.location.href = {{.DeepLink}};
    setTimeout(function() { window.location.href = {{.Fallback}}; }, {{.DelayMS}});
  </script>
</body></html>
`))

func buildAppDeeplink(data *record.Payload, info *requestinfo.Info) *Response {
	webFallback := data.WebFallbackURL
	if webFallback == "" {
		webFallback = "/"
	}

	if data.DeepLink == "" {
		return redirect(webFallback)
	}

	fallback := webFallback
	switch {
	case info.Device == requestinfo.DeviceIOS && data.IOSStoreURL != "":
		fallback = data.IOSStoreURL
	case info.Device == requestinfo.DeviceAndroid && data.AndroidStoreURL != "":
		fallback = data.AndroidStoreURL
	}

	var b strings.Builder
	err := bouncePage.Execute(&b, struct {
		DeepLink, Fallback string
		DelayMS            int
	}{data.DeepLink, fallback, fallbackDelayMS})
	if err != nil {
		// Template data is three strings and an int; execution cannot
		// realistically fail, but degrade to the fallback regardless.
		return redirect(fallback)
	}
	return htmlPage(b.String())
}
