//go:build linux || darwin

package logsrc

import (
	"io"
	"os"
	"syscall"
)

// mmapCloser releases a syscall.Mmap mapping and the file descriptor that
// backed it.
type mmapCloser struct {
	b []byte
	f *os.File
}

func (m *mmapCloser) Close() error {
	err := syscall.Munmap(m.b)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// mmapFile maps f read-only for its full size, grounded in
// ipexist/mmap.go's read-write FileMap but simplified to the read-only
// case the scanning core needs: the byte source never writes back.
func mmapFile(f *os.File, size int64) ([]byte, io.Closer, error) {
	b, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return b, &mmapCloser{b: b, f: f}, nil
}
