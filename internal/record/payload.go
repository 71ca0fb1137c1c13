// internal/record/payload.go
//
// Payload schema and the closed kind set.
//
// Context
// -------
// All QR kinds share one JSON payload document; each kind reads only its
// own fields.  Keeping the schema in a single struct (rather than a map)
// makes the field inventory explicit, gives the envelope a stable
// round-trippable shape, and lets every dispatch site switch exhaustively
// over Kind constants instead of raw strings.

package record

import "github.com/ouhud/qrlink/internal/targeting"

// Kind is the closed set of supported payload kinds.  The resolver's
// dispatch switch enumerates every constant; anything else is answered
// with an "unsupported" response, never a crash.
type Kind string

const (
	KindURL         Kind = "url"
	KindVCard       Kind = "vcard"
	KindWiFi        Kind = "wifi"
	KindEmail       Kind = "email"
	KindSMS         Kind = "sms"
	KindTel         Kind = "tel"
	KindSocial      Kind = "social"
	KindEvent       Kind = "event"
	KindGeo         Kind = "geo"
	KindPayment     Kind = "payment"
	KindMultilink   Kind = "multilink"
	KindProduct     Kind = "product"
	KindWallet      Kind = "wallet"
	KindGS1         Kind = "gs1"
	KindAppDeeplink Kind = "app_deeplink"
	KindReview      Kind = "review"
	KindBooking     Kind = "booking"
	KindLead        Kind = "lead"
	KindFeedback    Kind = "feedback"
	KindCoupon      Kind = "coupon"
	KindPDF         Kind = "pdf"
)

// Kinds lists every supported kind, in the order the product exposes them.
var Kinds = []Kind{
	KindURL, KindVCard, KindWiFi, KindEmail, KindSMS, KindTel, KindSocial,
	KindEvent, KindGeo, KindPayment, KindMultilink, KindProduct, KindWallet,
	KindGS1, KindAppDeeplink, KindReview, KindBooking, KindLead,
	KindFeedback, KindCoupon, KindPDF,
}

// Valid reports whether k names a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// WiFiConfig is the nested form some editors write; flat ssid/password
// fields at the payload top level are the older form.
type WiFiConfig struct {
	SSID       string `json:"ssid,omitempty"`
	Password   string `json:"password,omitempty"`
	Encryption string `json:"encryption,omitempty"`
}

// Payload is the decrypted content document shared by all kinds.  Editors
// write it wholesale on every content mutation; partial patching does not
// exist.
type Payload struct {
	// Routing (url kind; UTM applies to most redirecting kinds).
	targeting.RoutingConfig

	// email / sms / tel
	Mailto string `json:"mailto,omitempty"`
	Tel    string `json:"tel,omitempty"`
	SMS    string `json:"sms,omitempty"`

	// wifi: nested config preferred, flat fields kept for old records
	WiFi       *WiFiConfig `json:"wifi,omitempty"`
	SSID       string      `json:"ssid,omitempty"`
	Password   string      `json:"password,omitempty"`
	Encryption string      `json:"encryption,omitempty"`
	Hidden     bool        `json:"hidden,omitempty"`

	// geo
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	// vcard: either stored text or individual fields to synthesize from
	VCardText string `json:"vcard_text,omitempty"`
	VCard     string `json:"vcard,omitempty"` // older alias of VCardText
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Name      string `json:"name,omitempty"` // legacy single-field name
	Org       string `json:"org,omitempty"`
	Company   string `json:"company,omitempty"` // legacy alias of Org
	Title     string `json:"title,omitempty"`
	Position  string `json:"position,omitempty"` // legacy alias of Title
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Website   string `json:"website,omitempty"`

	// event
	ICS string `json:"ics,omitempty"`

	// pdf
	PDFPath string `json:"pdf_path,omitempty"`

	// social / multilink
	PublicHTML string `json:"public_html,omitempty"`
	PublicURL  string `json:"public_url,omitempty"`

	// payment
	PaymentURL string `json:"payment_url,omitempty"`
	EPCPayload string `json:"epc_payload,omitempty"`

	// product / review / booking / gs1
	ProductURL string `json:"product_url,omitempty"`
	ReviewURL  string `json:"review_url,omitempty"`
	BookingURL string `json:"booking_url,omitempty"`
	GS1Link    string `json:"gs1_link,omitempty"`

	// wallet
	ApplePassURL  string `json:"apple_pass_url,omitempty"`
	GooglePassURL string `json:"google_pass_url,omitempty"`
	PassURL       string `json:"pass_url,omitempty"`

	// app_deeplink
	DeepLink        string `json:"deep_link,omitempty"`
	IOSStoreURL     string `json:"ios_store_url,omitempty"`
	AndroidStoreURL string `json:"android_store_url,omitempty"`
	WebFallbackURL  string `json:"web_fallback_url,omitempty"`

	// Legacy catch-all populated when a pre-encryption row held a bare
	// string instead of a JSON document.
	Content string `json:"content,omitempty"`
}

// WiFiFields returns the effective WiFi settings, preferring the nested
// form over the flat legacy fields.  The encryption mode defaults to WPA.
func (p *Payload) WiFiFields() WiFiConfig {
	cfg := WiFiConfig{SSID: p.SSID, Password: p.Password, Encryption: p.Encryption}
	if p.WiFi != nil {
		cfg = *p.WiFi
	}
	if cfg.Encryption == "" {
		cfg.Encryption = "WPA"
	}
	return cfg
}
