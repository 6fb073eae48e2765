//go:build !windows

package cfl

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapped is a read-only memory mapping of a data file.
type mapped struct {
	data []byte
	f    *os.File
}

func openMapped(path string) (*mapped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		return &mapped{f: f}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mapped{data: data, f: f}, nil
}

// Close unmaps the memory and closes the underlying file.
func (m *mapped) Close() error {
	var err error
	if m.data != nil {
		err = unix.Munmap(m.data)
		m.data = nil
	}
	if cerr := m.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
