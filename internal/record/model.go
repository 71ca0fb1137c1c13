// internal/record/model.go
//
// QR record model.
//
// Context
// -------
// Record mirrors one row in the persistent `qr_codes` table.  The semantic
// payload lives only in EncryptedContent; LegacyContent is a read-only
// migration aid for rows written before encryption was introduced.  The
// struct is plain data: decryption is an explicit call on the resolution
// path (see Data), never implicit state cached on the row.
//
// Notes
// -----
// • UserID exists for telemetry self-visit suppression, not authorization.
// • Oxford commas, two spaces after periods.

package record

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ouhud/qrlink/internal/envelope"
)

// Record mirrors one row in the `qr_codes` table.
type Record struct {
	ID               int64          `db:"id"`
	Slug             string         `db:"slug"`
	Type             Kind           `db:"type"`
	EncryptedContent sql.NullString `db:"encrypted_content"`
	LegacyContent    sql.NullString `db:"content"`
	Active           bool           `db:"active"`
	UserID           int64          `db:"user_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        sql.NullTime   `db:"updated_at"`
}

// Data reconstructs the record's payload with the fixed precedence:
// decrypt(encrypted blob), else the legacy plaintext column, in that order
// and never merged.  Legacy content that is not JSON is wrapped as a bare
// Content value, matching rows written by the earliest schema.  Returns nil
// when neither source yields anything.
func (r *Record) Data(env *envelope.Envelope) *Payload {
	if r.EncryptedContent.Valid {
		var p Payload
		if env.Decrypt(r.EncryptedContent.String, &p) {
			return &p
		}
	}

	if r.LegacyContent.Valid && r.LegacyContent.String != "" {
		raw := r.LegacyContent.String
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p
		}
		return &Payload{Content: raw}
	}

	return nil
}
