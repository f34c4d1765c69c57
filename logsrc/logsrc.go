// Package logsrc supplies the byte source component: a contiguous,
// read-only byte view of an access log plus its path label. Uncompressed
// logs are memory-mapped, grounded in ipexist/mmap.go's FileMap; a
// ".gz"-suffixed path is fully decompressed into memory first, since
// streaming decompression and memory-mapping cannot be combined.
package logsrc

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Source is a contiguous, read-only byte view of a log file and the path
// it came from. Bytes is valid for the lifetime of the Source; call Close
// when done with it.
type Source struct {
	Path  string
	Bytes []byte

	closer io.Closer
}

// Open maps path into memory (or, for a .gz path, fully decompresses it)
// and returns a Source over its contents.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logsrc: opening %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".gz") {
		defer f.Close()
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("logsrc: %s is not a valid gzip stream: %w", path, err)
		}
		defer gz.Close()
		b, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("logsrc: decompressing %s: %w", path, err)
		}
		return &Source{Path: path, Bytes: b}, nil
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("logsrc: stat %s: %w", path, err)
	}
	if fi.Size() == 0 {
		f.Close()
		return &Source{Path: path, Bytes: nil}, nil
	}

	b, closer, err := mmapFile(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("logsrc: mapping %s: %w", path, err)
	}
	return &Source{Path: path, Bytes: b, closer: closer}, nil
}

// Close releases the underlying mapping or file handle. Safe to call on
// a Source with no backing handle (the empty/gzip case).
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
