// Package multind provides the multi-dimensional complex arrays used by the
// calibration code. Arrays are stored with the first dimension varying
// fastest, matching the layout of BART .cfl files.
package multind

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrShape is returned when array dimensions are invalid or do not match.
var ErrShape = errors.New("multind: invalid shape")

// Array is a dense multi-dimensional array of complex values.
type Array struct {
	// Dims holds the length of each dimension, first dimension fastest
	Dims []int

	// Data holds Size(Dims) elements
	Data []complex128
}

// New allocates a zeroed array with the given dimensions.
func New(dims ...int) *Array {
	d := append([]int(nil), dims...)
	return &Array{
		Dims: d,
		Data: make([]complex128, Size(d)),
	}
}

// FromData wraps data in an array. The length of data must equal Size(dims).
func FromData(dims []int, data []complex128) (*Array, error) {
	if len(data) != Size(dims) {
		return nil, fmt.Errorf("%w: %d elements for dims %v", ErrShape, len(data), dims)
	}
	return &Array{Dims: append([]int(nil), dims...), Data: data}, nil
}

// Size returns the number of elements described by dims.
func Size(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// Strides returns the element strides for dims.
func Strides(dims []int) []int {
	str := make([]int, len(dims))
	s := 1
	for i, d := range dims {
		str[i] = s
		s *= d
	}
	return str
}

// SameDims reports whether a and b describe the same shape.
// Trailing singleton dimensions are ignored.
func SameDims(a, b []int) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if Dim(a, i) != Dim(b, i) {
			return false
		}
	}
	return true
}

// Dim returns dims[i], or 1 when i is past the end of dims.
func Dim(dims []int, i int) int {
	if i < len(dims) {
		return dims[i]
	}
	return 1
}

// Size returns the number of elements in the array.
func (a *Array) Size() int { return len(a.Data) }

// Dim returns the length of dimension i (1 beyond the stored dimensions).
func (a *Array) Dim(i int) int { return Dim(a.Dims, i) }

// Index converts a position into a linear offset.
func (a *Array) Index(pos ...int) int {
	idx := 0
	s := 1
	for i, d := range a.Dims {
		if i < len(pos) {
			idx += pos[i] * s
		}
		s *= d
	}
	return idx
}

// At returns the element at pos.
func (a *Array) At(pos ...int) complex128 { return a.Data[a.Index(pos...)] }

// Set stores v at pos.
func (a *Array) Set(v complex128, pos ...int) { a.Data[a.Index(pos...)] = v }

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	return &Array{
		Dims: append([]int(nil), a.Dims...),
		Data: append([]complex128(nil), a.Data...),
	}
}

// Clear sets all elements to zero.
func (a *Array) Clear() {
	for i := range a.Data {
		a.Data[i] = 0
	}
}

// Scale multiplies every element by s.
func (a *Array) Scale(s complex128) {
	for i := range a.Data {
		a.Data[i] *= s
	}
}

// Add adds b element-wise to a.
func (a *Array) Add(b *Array) error {
	if len(a.Data) != len(b.Data) || !SameDims(a.Dims, b.Dims) {
		return fmt.Errorf("%w: add %v and %v", ErrShape, a.Dims, b.Dims)
	}
	for i, v := range b.Data {
		a.Data[i] += v
	}
	return nil
}

// Conj conjugates every element in place.
func (a *Array) Conj() {
	for i, v := range a.Data {
		a.Data[i] = cmplx.Conj(v)
	}
}

// Norm returns the Euclidean norm of all elements.
func (a *Array) Norm() float64 {
	var s float64
	for _, v := range a.Data {
		s += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(s)
}

// Reshape returns an array sharing a's data with new dimensions.
func (a *Array) Reshape(dims ...int) (*Array, error) {
	return FromData(dims, a.Data)
}

// loop calls fn for every position inside dims, first dimension fastest.
// pos is reused between calls.
func loop(dims []int, fn func(pos []int)) {
	n := Size(dims)
	if n == 0 {
		return
	}
	pos := make([]int, len(dims))
	for k := 0; k < n; k++ {
		fn(pos)
		for i := range pos {
			pos[i]++
			if pos[i] < dims[i] {
				break
			}
			pos[i] = 0
		}
	}
}

// ResizeCenter copies src into dst so that the centre samples (index n/2 on
// every axis) coincide. Axes of dst larger than src are zero-padded, smaller
// ones are cropped. dst and src must have the same number of dimensions.
func ResizeCenter(dst, src *Array) error {
	if len(dst.Dims) != len(src.Dims) {
		return fmt.Errorf("%w: resize %v to %v", ErrShape, src.Dims, dst.Dims)
	}

	D := len(dst.Dims)
	overlap := make([]int, D)
	dOff := make([]int, D)
	sOff := make([]int, D)
	for i := 0; i < D; i++ {
		d, s := dst.Dims[i], src.Dims[i]
		if d >= s {
			overlap[i] = s
			dOff[i] = d/2 - s/2
		} else {
			overlap[i] = d
			sOff[i] = s/2 - d/2
		}
	}

	dStr := Strides(dst.Dims)
	sStr := Strides(src.Dims)

	dst.Clear()
	loop(overlap, func(pos []int) {
		di, si := 0, 0
		for i, p := range pos {
			di += (p + dOff[i]) * dStr[i]
			si += (p + sOff[i]) * sStr[i]
		}
		dst.Data[di] = src.Data[si]
	})
	return nil
}
