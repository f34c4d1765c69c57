package logsrc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestOpenPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	content := []byte("10.0.0.1 GET /a\n10.0.0.1 GET /b\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if string(src.Bytes) != string(content) {
		t.Fatalf("Bytes = %q, want %q", src.Bytes, content)
	}
	if src.Path != path {
		t.Fatalf("Path = %q, want %q", src.Path, path)
	}
}

func TestOpenEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if len(src.Bytes) != 0 {
		t.Fatalf("expected empty byte view, got %d bytes", len(src.Bytes))
	}
}

func TestOpenGzippedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	gz := gzip.NewWriter(f)
	want := []byte("10.0.0.1 GET /a\n")
	if _, err := gz.Write(want); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if string(src.Bytes) != string(want) {
		t.Fatalf("Bytes = %q, want %q", src.Bytes, want)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/path/does-not-exist.log"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
