// internal/targeting/targeting.go
//
// Destination selection for link-like QR payloads.
//
// Context
// -------
// A url payload may carry an ordered rule list, a weighted A/B pool, and a
// default destination.  ResolveTarget applies them with fixed precedence:
//
//	1. First rule whose constraints all hold, and that names a target.
//	2. Weighted random pick from the A/B pool.
//	3. The payload default ("/" when absent entirely).
//
// The evaluator never fails: malformed bounds, unknown devices, or a rule
// without a target all read as "not applicable" and selection degrades to
// the next tier.  Rule edits replace the whole RoutingConfig wholesale, so
// nothing here mutates the config.
//
// Notes
// -----
// • Time windows compare UTC "HH:MM" strings, both bounds inclusive.
// • Oxford commas, two spaces after periods.

package targeting

import (
	"math/rand/v2"
	"strings"
	"time"
)

// Rule is one conditional destination.  Empty constraint fields are
// skipped; a rule with every constraint empty matches everything.
type Rule struct {
	TimeFrom  string   `json:"time_from,omitempty"`
	TimeTo    string   `json:"time_to,omitempty"`
	Countries []string `json:"countries,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Devices   []string `json:"devices,omitempty"`
	TargetURL string   `json:"target_url,omitempty"`
}

// ABTarget is one weighted redirect candidate.  A nil weight counts as
// 1.0; an explicit non-positive weight removes the candidate.
type ABTarget struct {
	URL    string   `json:"url"`
	Weight *float64 `json:"weight,omitempty"`
}

// UTM carries campaign-attribution parameters appended to redirect
// destinations.
type UTM struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// RoutingConfig is the routing portion of a url payload.
type RoutingConfig struct {
	Rules     []Rule     `json:"rules,omitempty"`
	ABTargets []ABTarget `json:"ab_targets,omitempty"`
	UTM       UTM        `json:"utm,omitempty"`
	URL       string     `json:"url,omitempty"`
	TargetURL string     `json:"target_url,omitempty"` // legacy alias for URL
}

// Visitor is the request-derived context rules match against.  Device is
// one of "ios", "android", "desktop", or "other".
type Visitor struct {
	Country        string
	AcceptLanguage string
	Device         string
	Now            time.Time
}

// ResolveTarget picks the destination URL for v.  It never fails; with an
// empty config it returns "/".
func ResolveTarget(cfg RoutingConfig, v Visitor) string {
	for _, rule := range cfg.Rules {
		if rule.TargetURL == "" {
			continue
		}
		if rule.matches(v) {
			return rule.TargetURL
		}
	}

	if picked := pickAB(cfg.ABTargets); picked != "" {
		return picked
	}

	switch {
	case cfg.URL != "":
		return cfg.URL
	case cfg.TargetURL != "":
		return cfg.TargetURL
	default:
		return "/"
	}
}

func (r Rule) matches(v Visitor) bool {
	// Time-of-day window, UTC, inclusive.  String comparison is correct
	// for zero-padded HH:MM; the constraint only applies when both bounds
	// are present.
	from := strings.TrimSpace(r.TimeFrom)
	to := strings.TrimSpace(r.TimeTo)
	if from != "" && to != "" {
		now := v.Now.UTC().Format("15:04")
		if now < from || now > to {
			return false
		}
	}

	if len(r.Countries) > 0 {
		country := strings.ToUpper(v.Country)
		if !containsFold(r.Countries, country, strings.ToUpper) {
			return false
		}
	}

	if len(r.Languages) > 0 {
		accept := strings.ToLower(v.AcceptLanguage)
		found := false
		for _, lang := range r.Languages {
			if lang != "" && strings.Contains(accept, strings.ToLower(lang)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(r.Devices) > 0 {
		if !containsFold(r.Devices, strings.ToLower(v.Device), strings.ToLower) {
			return false
		}
	}

	return true
}

func containsFold(haystack []string, needle string, fold func(string) string) bool {
	for _, h := range haystack {
		if fold(h) == needle {
			return true
		}
	}
	return false
}

// pickAB samples one candidate proportionally to weight.  Candidates with
// no URL or an explicit non-positive weight are skipped; an empty or
// all-skipped pool returns "".
func pickAB(targets []ABTarget) string {
	type candidate struct {
		url    string
		weight float64
	}
	var pool []candidate
	var total float64
	for _, t := range targets {
		if t.URL == "" {
			continue
		}
		w := 1.0
		if t.Weight != nil {
			w = *t.Weight
			if w <= 0 {
				continue
			}
		}
		pool = append(pool, candidate{url: t.URL, weight: w})
		total += w
	}
	if len(pool) == 0 {
		return ""
	}

	roll := rand.Float64() * total
	for _, c := range pool {
		roll -= c.weight
		if roll < 0 {
			return c.url
		}
	}
	return pool[len(pool)-1].url
}
