package filestore

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "uploads"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte("%PDF-1.4 test")
	if err := os.WriteFile(filepath.Join(dir, "uploads", "menu.pdf"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(dir)

	r, name, size, err := s.Open("uploads/menu.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if name != "menu.pdf" || size != int64(len(content)) {
		t.Fatalf("name=%q size=%d", name, size)
	}
	got, _ := io.ReadAll(r)
	if string(got) != string(content) {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestOpen_Missing(t *testing.T) {
	s := New(t.TempDir())
	if _, _, _, err := s.Open("nope.pdf"); err != ErrMissing {
		t.Fatalf("err = %v, want ErrMissing", err)
	}
}

func TestOpen_TraversalBlocked(t *testing.T) {
	dir := t.TempDir()
	// A file outside the store root must stay unreachable.
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(outside) })

	s := New(dir)
	if _, _, _, err := s.Open("../secret.txt"); err != ErrMissing {
		t.Fatalf("traversal must be blocked, got err = %v", err)
	}
}

func TestOpen_DirectoryRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "uploads"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := New(dir)
	if _, _, _, err := s.Open("uploads"); err != ErrMissing {
		t.Fatalf("directory must be rejected, got err = %v", err)
	}
}
