// internal/record/slug.go
//
// Slug generation.  Slugs are the only value printed into a QR image, so
// they are short, URL-safe, and immutable after creation.

package record

import (
	"strings"

	"github.com/google/uuid"
)

// slugLen keeps printed QR payloads small while leaving 16^10 tokens,
// enough that the unique index on qr_codes.slug resolves the rare clash.
const slugLen = 10

// NewSlug returns a fresh 10-character lowercase hex token.
func NewSlug() string {
	u := uuid.New()
	hex := strings.ReplaceAll(u.String(), "-", "")
	return hex[:slugLen]
}
