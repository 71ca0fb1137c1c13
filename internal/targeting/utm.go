// internal/targeting/utm.go
//
// UTM parameter merge.
//
// AppendUTM parses and re-serializes the destination's query string, so the
// operation is idempotent: calling it twice sets the same utm_* keys rather
// than concatenating duplicates.  Keys the destination already carries are
// preserved unless they are the utm_* keys being written.  The synthetic
// utm_qr_slug tag ties attribution back to the originating record and is
// only set when the destination does not already carry one.

package targeting

import (
	"net/url"
)

// AppendUTM merges utm into rawurl's query string and tags the result with
// utm_qr_slug.  Unparseable input is returned unchanged; this helper never
// fails a redirect.
func AppendUTM(rawurl string, utm UTM, slug string) string {
	if rawurl == "" {
		return rawurl
	}
	u, err := url.Parse(rawurl)
	if err != nil {
		return rawurl
	}

	q := u.Query()
	for key, val := range map[string]string{
		"utm_source":   utm.Source,
		"utm_medium":   utm.Medium,
		"utm_campaign": utm.Campaign,
		"utm_term":     utm.Term,
		"utm_content":  utm.Content,
	} {
		if val != "" {
			q.Set(key, val)
		}
	}
	if slug != "" && q.Get("utm_qr_slug") == "" {
		q.Set("utm_qr_slug", slug)
	}

	u.RawQuery = q.Encode()
	return u.String()
}
