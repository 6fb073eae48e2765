// Package cfl reads and writes multi-dimensional complex arrays in the
// header/data file pair used by MRI reconstruction tools: a text header
// NAME.hdr holding the dimensions and a data file NAME.cfl holding
// little-endian complex64 values, first dimension fastest.
//
// The data file may be compressed; NAME.cfl.zst (zstd) and NAME.cfl.lz4
// (LZ4 frame) are recognized on load.
package cfl

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"mriespirit/pkg/multind"
)

// ErrFormat is returned for malformed headers or data files.
var ErrFormat = errors.New("cfl: invalid file")

// Compression selects the encoding of the data file.
type Compression int

const (
	None Compression = iota
	Zstd
	LZ4
)

// Suffix returns the data file suffix of c.
func (c Compression) Suffix() string {
	switch c {
	case Zstd:
		return ".cfl.zst"
	case LZ4:
		return ".cfl.lz4"
	default:
		return ".cfl"
	}
}

// ParseCompression maps a name ("", "none", "zstd", "lz4") to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return None, nil
	case "zstd", "zst":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, fmt.Errorf("%w: unknown compression %q", ErrFormat, name)
	}
}

const elemSize = 8

// Load reads the array stored under base (without suffix).
func Load(base string) (*multind.Array, error) {
	dims, err := ReadHeader(base + ".hdr")
	if err != nil {
		return nil, err
	}
	a := multind.New(dims...)

	for _, c := range []Compression{None, Zstd, LZ4} {
		path := base + c.Suffix()
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if c == None {
			err = loadMapped(path, a)
		} else {
			err = loadStream(path, c, a)
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: no data file for %s", ErrFormat, base)
}

func loadMapped(path string, a *multind.Array) error {
	m, err := openMapped(path)
	if err != nil {
		return err
	}
	defer m.Close()

	if len(m.data) != elemSize*a.Size() {
		return fmt.Errorf("%w: %d bytes for %d elements", ErrFormat, len(m.data), a.Size())
	}
	decode(a.Data, m.data)
	return nil
}

func loadStream(path string, c Compression, a *multind.Array) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader
	switch c {
	case Zstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer dec.Close()
		r = dec
	case LZ4:
		r = lz4.NewReader(f)
	}

	buf := make([]byte, elemSize*4096)
	for off := 0; off < a.Size(); {
		n := min(4096, a.Size()-off)
		if _, err := io.ReadFull(r, buf[:elemSize*n]); err != nil {
			return fmt.Errorf("%w: %v", ErrFormat, err)
		}
		decode(a.Data[off:off+n], buf[:elemSize*n])
		off += n
	}

	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return fmt.Errorf("%w: trailing data", ErrFormat)
	}
	return nil
}

// Write stores a under base: the header base.hdr and the data file with
// the suffix of c.
func Write(base string, a *multind.Array, c Compression) error {
	if err := WriteHeader(base+".hdr", a.Dims); err != nil {
		return err
	}

	f, err := os.Create(base + c.Suffix())
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	var w io.WriteCloser
	switch c {
	case Zstd:
		if w, err = zstd.NewWriter(bw); err != nil {
			f.Close()
			return err
		}
	case LZ4:
		w = lz4.NewWriter(bw)
	default:
		w = nopCloser{bw}
	}

	buf := make([]byte, elemSize*4096)
	for off := 0; off < a.Size(); {
		n := min(4096, a.Size()-off)
		encode(buf[:elemSize*n], a.Data[off:off+n])
		if _, err := w.Write(buf[:elemSize*n]); err != nil {
			f.Close()
			return err
		}
		off += n
	}

	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func decode(dst []complex128, src []byte) {
	for i := range dst {
		re := math.Float32frombits(binary.LittleEndian.Uint32(src[elemSize*i:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(src[elemSize*i+4:]))
		dst[i] = complex(float64(re), float64(im))
	}
}

func encode(dst []byte, src []complex128) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[elemSize*i:], math.Float32bits(float32(real(v))))
		binary.LittleEndian.PutUint32(dst[elemSize*i+4:], math.Float32bits(float32(imag(v))))
	}
}
