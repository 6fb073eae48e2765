// Package linalg implements the small dense complex linear algebra needed by
// the calibration: packed Hermitian storage, Hermitian eigendecomposition,
// the singular value decomposition of complex matrices and orthogonal
// iteration.
//
// Complex problems are solved on their real embedding
//
//	[ Re(A)  -Im(A) ]
//	[ Im(A)   Re(A) ]
//
// with gonum's real factorizations. Every eigenvalue and singular value of A
// appears twice in the embedding; complexify recovers one complex vector per
// pair.
package linalg

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoConvergence is returned when a gonum factorization fails.
	ErrNoConvergence = errors.New("linalg: factorization failed")

	// ErrShape is returned for inconsistent matrix sizes.
	ErrShape = errors.New("linalg: invalid shape")
)

// Herm is a dense n×n complex matrix stored row-major. It is expected to be
// Hermitian; only methods that say so rely on it.
type Herm struct {
	N    int
	Data []complex128
}

// NewHerm returns a zero n×n matrix.
func NewHerm(n int) *Herm {
	return &Herm{N: n, Data: make([]complex128, n*n)}
}

// At returns element (i, j).
func (h *Herm) At(i, j int) complex128 { return h.Data[i*h.N+j] }

// Set sets element (i, j).
func (h *Herm) Set(i, j int, v complex128) { h.Data[i*h.N+j] = v }

// MulVec returns h·x.
func (h *Herm) MulVec(x []complex128) []complex128 {
	y := make([]complex128, h.N)
	for i := 0; i < h.N; i++ {
		var s complex128
		row := h.Data[i*h.N : (i+1)*h.N]
		for j, v := range row {
			s += v * x[j]
		}
		y[i] = s
	}
	return y
}

// PackedSize returns the number of entries of an n×n packed triangle.
func PackedSize(n int) int { return n * (n + 1) / 2 }

// ChannelsFromPacked inverts PackedSize. It returns -1 if size is not a
// triangular number.
func ChannelsFromPacked(size int) int {
	for n := 0; PackedSize(n) <= size; n++ {
		if PackedSize(n) == size {
			return n
		}
	}
	return -1
}

// UnpackTri expands a packed lower triangle (row i holds columns 0..i) into
// a full Hermitian matrix, filling the upper half with conjugates.
func UnpackTri(n int, packed []complex128) *Herm {
	h := NewHerm(n)
	l := 0
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := packed[l]
			l++
			h.Set(i, j, v)
			h.Set(j, i, cmplx.Conj(v))
		}
	}
	return h
}

// PackTri stores the lower triangle of h in packed form.
func PackTri(h *Herm) []complex128 {
	p := make([]complex128, 0, PackedSize(h.N))
	for i := 0; i < h.N; i++ {
		for j := 0; j <= i; j++ {
			p = append(p, h.At(i, j))
		}
	}
	return p
}

// embed returns the real symmetric 2n×2n embedding of the Hermitian h.
func (h *Herm) embed() *mat.SymDense {
	n := h.N
	s := mat.NewSymDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := h.At(i, j)
			s.SetSym(i, j, real(v))
			s.SetSym(n+i, n+j, real(v))
			s.SetSym(i, n+j, -imag(v))
			if i != j {
				// (j, n+i) = -Im(h_ji) = Im(h_ij)
				s.SetSym(j, n+i, imag(v))
			}
		}
	}
	return s
}

// embedGeneral returns the real 2m×2n embedding of the m×n row-major complex
// matrix a.
func embedGeneral(m, n int, a []complex128) *mat.Dense {
	r := mat.NewDense(2*m, 2*n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := a[i*n+j]
			r.Set(i, j, real(v))
			r.Set(m+i, n+j, real(v))
			r.Set(i, n+j, -imag(v))
			r.Set(m+i, j, imag(v))
		}
	}
	return r
}
