// internal/resolver/errors.go
//
// Resolution error taxonomy.  Only these sentinels cross the package
// boundary; crypto and parse failures are absorbed earlier and degrade to
// per-kind fallbacks instead of surfacing here.

package resolver

import "errors"

var (
	// ErrNotFound covers unknown slugs and inactive records alike; the
	// two cases are deliberately indistinguishable to a scanner.
	ErrNotFound = errors.New("resolver: record not found")

	// ErrContentUnavailable means the record exists but a required
	// type-specific datum is gone: decrypt and legacy fallback both came
	// up empty, or a mandatory field is missing.  Maps to 410.
	ErrContentUnavailable = errors.New("resolver: content unavailable")

	// ErrFileMissing means a payload referenced a stored file that no
	// longer exists.  Maps to 404.
	ErrFileMissing = errors.New("resolver: stored file missing")
)
