// internal/targeting/targeting_test.go
//
// Unit-tests for rule precedence, A/B sampling, and degradation behavior.

package targeting

import (
	"strings"
	"testing"
	"time"
)

func fptr(f float64) *float64 { return &f }

// noon is a fixed UTC instant so time-window assertions are deterministic.
var noon = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestResolveTarget_EmptyConfig(t *testing.T) {
	got := ResolveTarget(RoutingConfig{}, Visitor{Now: noon})
	if got != "/" {
		t.Fatalf("empty config: got %q, want /", got)
	}
}

func TestResolveTarget_DefaultAndLegacyAlias(t *testing.T) {
	cfg := RoutingConfig{URL: "https://example.com/a", TargetURL: "https://example.com/b"}
	if got := ResolveTarget(cfg, Visitor{Now: noon}); got != "https://example.com/a" {
		t.Fatalf("url field must win over alias, got %q", got)
	}
	cfg.URL = ""
	if got := ResolveTarget(cfg, Visitor{Now: noon}); got != "https://example.com/b" {
		t.Fatalf("target_url alias not honored, got %q", got)
	}
}

func TestResolveTarget_RuleBeatsAB(t *testing.T) {
	cfg := RoutingConfig{
		Rules: []Rule{
			{Countries: []string{"de"}, TargetURL: "https://example.com/de"},
		},
		ABTargets: []ABTarget{{URL: "https://example.com/ab"}},
		URL:       "https://example.com/default",
	}
	v := Visitor{Country: "DE", Device: "desktop", Now: noon}

	// A matching rule must always win over the A/B pool, regardless of the
	// sampler's randomness.
	for i := 0; i < 50; i++ {
		if got := ResolveTarget(cfg, v); got != "https://example.com/de" {
			t.Fatalf("iteration %d: got %q, want rule target", i, got)
		}
	}
}

func TestRuleMatching(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
		v    Visitor
		want bool
	}{
		{"all empty matches", Rule{}, Visitor{Now: noon}, true},
		{"time window inside", Rule{TimeFrom: "09:00", TimeTo: "17:00"}, Visitor{Now: noon}, true},
		{"time window outside", Rule{TimeFrom: "13:00", TimeTo: "17:00"}, Visitor{Now: noon}, false},
		{"time window inclusive bound", Rule{TimeFrom: "12:00", TimeTo: "12:00"}, Visitor{Now: noon}, true},
		{"one empty bound is skipped", Rule{TimeFrom: "23:00"}, Visitor{Now: noon}, true},
		{"country case-insensitive", Rule{Countries: []string{"de", "AT"}}, Visitor{Country: "at", Now: noon}, true},
		{"country miss", Rule{Countries: []string{"DE"}}, Visitor{Country: "FR", Now: noon}, false},
		{"language substring", Rule{Languages: []string{"de"}},
			Visitor{AcceptLanguage: "de-DE,de;q=0.9,en;q=0.8", Now: noon}, true},
		{"language miss", Rule{Languages: []string{"fr"}},
			Visitor{AcceptLanguage: "en-US,en", Now: noon}, false},
		{"device match", Rule{Devices: []string{"ios", "android"}}, Visitor{Device: "ios", Now: noon}, true},
		{"device miss", Rule{Devices: []string{"desktop"}}, Visitor{Device: "android", Now: noon}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rule.matches(tc.v); got != tc.want {
				t.Fatalf("matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveTarget_RuleWithoutTargetSkipped(t *testing.T) {
	cfg := RoutingConfig{
		Rules: []Rule{
			{}, // matches everything but carries no destination
			{TargetURL: "https://example.com/second"},
		},
	}
	if got := ResolveTarget(cfg, Visitor{Now: noon}); got != "https://example.com/second" {
		t.Fatalf("targetless rule must be skipped, got %q", got)
	}
}

func TestPickAB_WeightHandling(t *testing.T) {
	// Every candidate filtered out: non-positive weights and empty URLs.
	got := pickAB([]ABTarget{
		{URL: "https://example.com/a", Weight: fptr(0)},
		{URL: "https://example.com/b", Weight: fptr(-2)},
		{URL: ""},
	})
	if got != "" {
		t.Fatalf("all-skipped pool must fall through, got %q", got)
	}

	// Missing weight defaults to 1.0 and keeps the candidate eligible.
	got = pickAB([]ABTarget{{URL: "https://example.com/only"}})
	if got != "https://example.com/only" {
		t.Fatalf("single candidate: got %q", got)
	}
}

func TestPickAB_Distribution(t *testing.T) {
	targets := []ABTarget{
		{URL: "a", Weight: fptr(3)},
		{URL: "b", Weight: fptr(1)},
	}

	const n = 20000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		counts[pickAB(targets)]++
	}

	// Expect ~75% / ~25%; allow a generous band so the test stays stable.
	ratio := float64(counts["a"]) / float64(n)
	if ratio < 0.70 || ratio > 0.80 {
		t.Fatalf("weight-3 candidate got %.3f of %d picks, want ≈0.75", ratio, n)
	}
	if counts["a"]+counts["b"] != n {
		t.Fatalf("unexpected pick outside pool: %v", counts)
	}
}

func TestAppendUTM(t *testing.T) {
	utm := UTM{Source: "print", Campaign: "menu"}

	got := AppendUTM("https://example.com/x?a=1", utm, "abc")
	for _, want := range []string{"a=1", "utm_source=print", "utm_campaign=menu", "utm_qr_slug=abc"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}

	// Idempotence: a second application rewrites, never duplicates.
	again := AppendUTM(got, utm, "abc")
	if strings.Count(again, "utm_source=") != 1 || strings.Count(again, "utm_qr_slug=") != 1 {
		t.Fatalf("duplicate utm keys after second merge: %q", again)
	}

	// Bare default target still gets the slug tag.
	if got := AppendUTM("/", UTM{}, "abc"); got != "/?utm_qr_slug=abc" {
		t.Fatalf("bare path: got %q", got)
	}

	// Pre-existing slug tag is preserved, not overwritten.
	kept := AppendUTM("https://example.com/?utm_qr_slug=orig", UTM{}, "abc")
	if !strings.Contains(kept, "utm_qr_slug=orig") || strings.Contains(kept, "utm_qr_slug=abc") {
		t.Fatalf("existing slug tag clobbered: %q", kept)
	}

	if got := AppendUTM("", utm, "abc"); got != "" {
		t.Fatalf("empty input must pass through, got %q", got)
	}
}
