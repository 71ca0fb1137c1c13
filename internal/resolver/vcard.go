// internal/resolver/vcard.go
//
// vCard rendering.
//
// A vcard record defaults to its human-readable view; the raw .vcf file is
// only served on explicit request (?format=vcf or ?download=1).  When no
// precomputed vCard text is stored, a minimal vCard 3.0 is synthesized
// from the individual payload fields, honoring the legacy aliases older
// editor versions wrote (name/company/position, or raw BEGIN:VCARD text in
// the catch-all content field).

package resolver

import (
	"strings"

	"github.com/ouhud/qrlink/internal/record"
)

func buildVCard(slug string, data *record.Payload, opts Options) *Response {
	if !opts.VCardDownload {
		return redirect("/qr/vcard/v/" + slug)
	}

	text := vcardText(data)
	if text == "" {
		// Nothing to synthesize from; the view page is still useful.
		return redirect("/qr/vcard/v/" + slug)
	}
	return attachment("text/vcard; charset=utf-8", "vcard_"+slug+".vcf", text)
}

// vcardText returns stored vCard content, or synthesizes a minimal 3.0
// card.  Empty result means the payload carries no contact data at all.
func vcardText(data *record.Payload) string {
	if s := strings.TrimSpace(data.VCardText); s != "" {
		return data.VCardText
	}
	if s := strings.TrimSpace(data.VCard); s != "" {
		return data.VCard
	}
	if c := strings.TrimSpace(data.Content); strings.HasPrefix(strings.ToUpper(c), "BEGIN:VCARD") {
		return data.Content
	}

	firstName := firstNonEmpty(data.FirstName, data.Name)
	lastName := data.LastName
	org := firstNonEmpty(data.Org, data.Company)
	title := firstNonEmpty(data.Title, data.Position)

	fn := strings.TrimSpace(firstName + " " + lastName)
	if fn == "" && org == "" && data.Phone == "" && data.Email == "" && data.Website == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("BEGIN:VCARD\n")
	b.WriteString("VERSION:3.0\n")
	b.WriteString("N:" + lastName + ";" + firstName + ";;;\n")
	b.WriteString("FN:" + fn + "\n")
	if org != "" {
		b.WriteString("ORG:" + org + "\n")
	}
	if title != "" {
		b.WriteString("TITLE:" + title + "\n")
	}
	if data.Phone != "" {
		b.WriteString("TEL;TYPE=cell:" + data.Phone + "\n")
	}
	if data.Email != "" {
		b.WriteString("EMAIL;TYPE=internet:" + data.Email + "\n")
	}
	if data.Website != "" {
		b.WriteString("URL:" + data.Website + "\n")
	}
	b.WriteString("END:VCARD\n")
	return b.String()
}
