// internal/filestore/filestore.go
//
// Local file store for pdf payloads.
//
// Payloads reference uploaded documents by a path relative to the store
// root.  Open confines every lookup to that root so a crafted payload
// cannot traverse out of it, and maps absence to ErrMissing, which the
// resolver translates to a plain not-found.

package filestore

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissing is returned when the referenced file does not exist or the
// path escapes the store root.
var ErrMissing = errors.New("filestore: file not found")

// Store serves read-only byte streams from a single directory tree.
type Store struct {
	root string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Open returns a reader for the stored file plus its base name and size.
// The caller owns closing the reader.
func (s *Store) Open(storedPath string) (io.ReadCloser, string, int64, error) {
	clean := filepath.Clean("/" + storedPath) // forces the path absolute, then re-roots it
	full := filepath.Join(s.root, clean)
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return nil, "", 0, ErrMissing
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", 0, ErrMissing
		}
		return nil, "", 0, err
	}

	st, err := f.Stat()
	if err != nil || st.IsDir() {
		f.Close()
		return nil, "", 0, ErrMissing
	}
	return f, filepath.Base(full), st.Size(), nil
}
