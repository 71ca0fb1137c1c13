// internal/resolver/resolver.go
//
// Type dispatcher for dynamic QR resolution.
//
/*
Context
--------
One slug, twenty-one payload kinds, one pipeline:

	lookup (active only) → telemetry decision → decrypt → dispatch

The dispatch switch enumerates every Kind constant; an unrecognized kind
degrades to a plaintext "unsupported" answer rather than an error.  Each
branch is a small pure builder over the decrypted payload and the request
Info, so the full matrix is testable without HTTP plumbing.

Telemetry is fire-and-forget through the sink's buffered queue and can
never delay or fail a response.

Notes
-----
  • A record whose blob fails to decrypt behaves exactly like one holding
    an empty payload; each kind defines its own missing-data answer.
  • Oxford commas, two spaces after periods.
*/
package resolver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/ouhud/qrlink/internal/envelope"
	"github.com/ouhud/qrlink/internal/filestore"
	"github.com/ouhud/qrlink/internal/record"
	"github.com/ouhud/qrlink/internal/requestinfo"
	"github.com/ouhud/qrlink/internal/targeting"
	"github.com/ouhud/qrlink/internal/telemetry"
)

// Options carries per-request presentation switches parsed at the HTTP
// boundary.
type Options struct {
	// VCardDownload is set by ?format=vcf or ?download=1; without it a
	// vcard record redirects to its human-readable view.
	VCardDownload bool
}

// Resolver wires the record store, envelope crypto, file store, and
// telemetry sink into the single resolve pipeline.  Stateless per
// request; safe for concurrent use.
type Resolver struct {
	db    *sqlx.DB
	env   *envelope.Envelope
	files *filestore.Store
	sink  *telemetry.Sink
}

// New builds a Resolver.
func New(db *sqlx.DB, env *envelope.Envelope, files *filestore.Store, sink *telemetry.Sink) *Resolver {
	return &Resolver{db: db, env: env, files: files, sink: sink}
}

// Resolve looks up slug and renders the kind-appropriate response.
// Returned errors are limited to the package taxonomy plus wrapped store
// failures.
func (rs *Resolver) Resolve(ctx context.Context, slug string, info *requestinfo.Info, opts Options) (*Response, error) {
	rec, err := record.GetActiveBySlug(ctx, rs.db, slug)
	if err != nil {
		if err == record.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolver: lookup %q: %w", slug, err)
	}

	// Telemetry is decided once and dispatched before the response is
	// built; the sink's queue guarantees the response path never waits.
	if telemetry.ShouldTrack(rec, info) {
		rs.sink.RecordScan(rec, info)
		rs.sink.RecordConversion(rec, info, "visit", nil, nil)
	}

	data := rec.Data(rs.env)
	if data == nil {
		data = &record.Payload{}
	}

	return rs.dispatch(rec, data, info, opts)
}

// dispatch renders one response per kind.  Exhaustive over record.Kinds.
func (rs *Resolver) dispatch(rec *record.Record, data *record.Payload, info *requestinfo.Info, opts Options) (*Response, error) {
	switch rec.Type {
	case record.KindURL:
		return rs.buildURL(rec, data, info), nil
	case record.KindEmail:
		return rs.buildEmail(rec, data), nil
	case record.KindTel:
		return buildURIRedirect(data.Tel)
	case record.KindSMS:
		return buildURIRedirect(data.SMS)
	case record.KindWiFi:
		return buildWiFi(data), nil
	case record.KindGeo:
		return buildGeo(data)
	case record.KindVCard:
		return buildVCard(rec.Slug, data, opts), nil
	case record.KindEvent:
		return buildEvent(rec.Slug, data)
	case record.KindPDF:
		return rs.buildPDF(data)
	case record.KindSocial:
		return rs.buildSocial(rec, data), nil
	case record.KindMultilink:
		return rs.buildMultilink(rec, data), nil
	case record.KindPayment:
		return rs.buildPayment(rec, data), nil
	case record.KindProduct:
		return rs.buildLinkRedirect(rec, data, data.ProductURL), nil
	case record.KindReview:
		return rs.buildLinkRedirect(rec, data, data.ReviewURL), nil
	case record.KindBooking:
		return rs.buildLinkRedirect(rec, data, data.BookingURL), nil
	case record.KindGS1:
		return rs.buildLinkRedirect(rec, data, data.GS1Link), nil
	case record.KindWallet:
		return rs.buildWallet(rec, data, info), nil
	case record.KindAppDeeplink:
		return buildAppDeeplink(data, info), nil
	case record.KindLead:
		return redirect("/qr/lead/v/" + rec.Slug), nil
	case record.KindFeedback:
		return redirect("/qr/feedback/v/" + rec.Slug), nil
	case record.KindCoupon:
		return redirect("/qr/coupon/v/" + rec.Slug), nil
	}

	// The kind column is constrained to the closed set; this only fires
	// on rows written by a newer schema.
	resp := plaintext(fmt.Sprintf("QR type %q is not supported.", rec.Type))
	resp.Status = 400
	return resp, nil
}

/*──────────────────────────── per-kind builders ────────────────────────────*/

func visitor(info *requestinfo.Info) targeting.Visitor {
	return targeting.Visitor{
		Country:        info.Country,
		AcceptLanguage: info.AcceptLanguage,
		Device:         info.Device,
		Now:            info.Now,
	}
}

func (rs *Resolver) buildURL(rec *record.Record, data *record.Payload, info *requestinfo.Info) *Response {
	target := targeting.ResolveTarget(data.RoutingConfig, visitor(info))
	return redirect(targeting.AppendUTM(target, data.UTM, rec.Slug))
}

func (rs *Resolver) buildEmail(rec *record.Record, data *record.Payload) *Response {
	target := data.Mailto
	if target == "" {
		target = "/"
	}
	return redirect(targeting.AppendUTM(target, data.UTM, rec.Slug))
}

// buildURIRedirect serves tel: and sms: payloads, whose sole datum is the
// pre-built URI itself.
func buildURIRedirect(uri string) (*Response, error) {
	if uri == "" {
		return nil, ErrContentUnavailable
	}
	return redirect(uri), nil
}

func buildWiFi(data *record.Payload) *Response {
	cfg := data.WiFiFields()
	body := fmt.Sprintf("WIFI:T:%s;S:%s;P:%s;H:%s;;",
		cfg.Encryption, cfg.SSID, cfg.Password, strconv.FormatBool(data.Hidden))
	return plaintext(body)
}

func buildGeo(data *record.Payload) (*Response, error) {
	if data.Lat == nil || data.Lon == nil {
		return nil, ErrContentUnavailable
	}
	return redirect(fmt.Sprintf("https://maps.google.com/?q=%v,%v", *data.Lat, *data.Lon)), nil
}

func buildEvent(slug string, data *record.Payload) (*Response, error) {
	// The stored ICS is the source of truth; a missing one is an error,
	// never an invitation to re-derive the calendar text.
	if data.ICS == "" {
		return nil, ErrContentUnavailable
	}
	return attachment("text/calendar; charset=utf-8", "event_"+slug+".ics", data.ICS), nil
}

func (rs *Resolver) buildPDF(data *record.Payload) (*Response, error) {
	if data.PDFPath == "" {
		return nil, ErrFileMissing
	}
	stream, name, size, err := rs.files.Open(data.PDFPath)
	if err != nil {
		if err == filestore.ErrMissing {
			return nil, ErrFileMissing
		}
		return nil, fmt.Errorf("resolver: open %q: %w", data.PDFPath, err)
	}
	return &Response{
		ContentType: "application/pdf",
		Filename:    name,
		Stream:      stream,
		Size:        size,
	}, nil
}

func (rs *Resolver) buildSocial(rec *record.Record, data *record.Payload) *Response {
	if data.PublicHTML != "" {
		return htmlPage(data.PublicHTML)
	}
	target := data.URL
	if target == "" {
		target = "/"
	}
	return redirect(targeting.AppendUTM(target, data.UTM, rec.Slug))
}

func (rs *Resolver) buildMultilink(rec *record.Record, data *record.Payload) *Response {
	if data.PublicHTML != "" {
		return htmlPage(data.PublicHTML)
	}
	target := data.PublicURL
	if target == "" {
		target = data.URL
	}
	if target != "" {
		return redirect(targeting.AppendUTM(target, data.UTM, rec.Slug))
	}
	return plaintext("This link page is empty.")
}

func (rs *Resolver) buildPayment(rec *record.Record, data *record.Payload) *Response {
	if data.PaymentURL != "" {
		return redirect(targeting.AppendUTM(data.PaymentURL, data.UTM, rec.Slug))
	}
	// EPC payload: bank-transfer text a banking app consumes directly.
	if data.EPCPayload != "" {
		return plaintext(data.EPCPayload)
	}
	return redirect("/")
}

func (rs *Resolver) buildLinkRedirect(rec *record.Record, data *record.Payload, target string) *Response {
	if target == "" {
		target = "/"
	}
	return redirect(targeting.AppendUTM(target, data.UTM, rec.Slug))
}

func (rs *Resolver) buildWallet(rec *record.Record, data *record.Payload, info *requestinfo.Info) *Response {
	var target string
	switch {
	case info.Device == requestinfo.DeviceIOS && data.ApplePassURL != "":
		target = data.ApplePassURL
	case info.Device == requestinfo.DeviceAndroid && data.GooglePassURL != "":
		target = data.GooglePassURL
	default:
		// Generic fallback chain; a mismatched platform still gets a
		// usable pass URL before the bare home redirect.
		target = firstNonEmpty(data.PassURL, data.ApplePassURL, data.GooglePassURL, "/")
	}
	return redirect(targeting.AppendUTM(target, data.UTM, rec.Slug))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
