//go:build !linux && !darwin

package logsrc

import (
	"io"
	"os"
)

// mmapFile falls back to a plain full read on platforms without the unix
// mmap syscalls wired up; the returned byte slice behaves identically to
// callers, just without the zero-copy page cache benefit.
func mmapFile(f *os.File, size int64) ([]byte, io.Closer, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(f, b); err != nil {
		f.Close()
		return nil, nil, err
	}
	return b, f, nil
}
