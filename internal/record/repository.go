// internal/record/repository.go
//
// sqlx repository for the `qr_codes` table.
//
// The resolve path only ever reads active rows by slug.  Writes belong to
// the editing endpoints, which encrypt through internal/envelope before
// calling UpdateContent; the blob is replaced wholesale, never patched.

package record

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no active record matches the slug.  Callers
// cannot tell an inactive row from a missing one.
var ErrNotFound = errors.New("record: not found")

// GetActiveBySlug fetches the single active record for slug.
func GetActiveBySlug(ctx context.Context, db *sqlx.DB, slug string) (*Record, error) {
	const q = `
        SELECT id, slug, type, encrypted_content, content,
               active, user_id, created_at, updated_at
        FROM   qr_codes
        WHERE  slug = ?
          AND  active = TRUE
        LIMIT  1;`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// UpdateContent replaces the record's encrypted blob and bumps updated_at.
// Callers pass the output of envelope.Encrypt; the legacy plaintext column
// is cleared so the fallback chain can never resurrect stale content.
func UpdateContent(ctx context.Context, db *sqlx.DB, id int64, blob string) error {
	const q = `
        UPDATE qr_codes
        SET    encrypted_content = ?, content = NULL, updated_at = ?
        WHERE  id = ?;`
	res, err := db.ExecContext(ctx, q, blob, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate turns the record off; subsequent resolutions see ErrNotFound.
func Deactivate(ctx context.Context, db *sqlx.DB, id int64) error {
	const q = `UPDATE qr_codes SET active = FALSE, updated_at = ? WHERE id = ?;`
	res, err := db.ExecContext(ctx, q, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
