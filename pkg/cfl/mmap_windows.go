//go:build windows

package cfl

import "os"

// mapped holds the contents of a data file read into memory.
type mapped struct {
	data []byte
}

func openMapped(path string) (*mapped, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &mapped{data: data}, nil
}

func (m *mapped) Close() error {
	m.data = nil
	return nil
}
