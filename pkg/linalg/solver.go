package linalg

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// Eigensolver computes leading eigenpairs of a Hermitian positive
// semi-definite matrix.
type Eigensolver interface {
	// Eigen returns at least m eigenpairs of h with eigenvalues in ascending
	// order, so the largest eigenvalue is always the last one returned.
	Eigen(h *Herm, m int) (vals []float64, vecs [][]complex128, err error)
}

// Dense is the direct eigensolver. It always returns all h.N eigenpairs.
type Dense struct{}

// Eigen implements Eigensolver.
func (Dense) Eigen(h *Herm, m int) ([]float64, [][]complex128, error) {
	if m > h.N {
		return nil, nil, fmt.Errorf("%w: %d eigenpairs of a %dx%d matrix", ErrShape, m, h.N, h.N)
	}
	return EigenHerm(h)
}

// OrthIter computes the m dominant eigenpairs by orthogonal (subspace)
// iteration.
type OrthIter struct {
	// Iterations is the fixed number of iterations; 30 if zero
	Iterations int
}

// Eigen implements Eigensolver. It returns exactly m eigenpairs.
func (o OrthIter) Eigen(h *Herm, m int) ([]float64, [][]complex128, error) {
	n := h.N
	if m > n || m < 0 {
		return nil, nil, fmt.Errorf("%w: %d eigenpairs of a %dx%d matrix", ErrShape, m, n, n)
	}

	iter := o.Iterations
	if iter == 0 {
		iter = 30
	}

	// start from the unit vectors plus a constant offset so no start
	// vector is orthogonal to everything
	vecs := make([][]complex128, m)
	for i := range vecs {
		vecs[i] = make([]complex128, n)
		for j := range vecs[i] {
			vecs[i][j] = 0.5
		}
		vecs[i][n-m+i] += 1
	}
	vals := make([]float64, m)

	for it := 0; it < iter; it++ {
		for i := range vecs {
			vecs[i] = h.MulVec(vecs[i])
		}
		GramSchmidt(vals, vecs)
	}

	sortAscending(vals, vecs)
	return vals, vecs, nil
}

// GramSchmidt orthonormalizes vecs in place, starting with the last vector,
// and stores the norm each vector had before normalization in vals. Used
// after a multiplication by the matrix, these norms are the eigenvalue
// estimates of orthogonal iteration. Vectors that vanish stay zero.
func GramSchmidt(vals []float64, vecs [][]complex128) {
	for i := len(vecs) - 1; i >= 0; i-- {
		v := vecs[i]
		for j := i + 1; j < len(vecs); j++ {
			s := Dot(vecs[j], v)
			for k := range v {
				v[k] -= s * vecs[j][k]
			}
		}

		nrm := Norm(v)
		vals[i] = nrm
		if nrm < math.SmallestNonzeroFloat64*1e10 {
			for k := range v {
				v[k] = 0
			}
			continue
		}
		for k := range v {
			v[k] /= complex(nrm, 0)
		}
	}
}

// Dot returns the complex inner product Σ conj(x_i)·y_i.
func Dot(x, y []complex128) complex128 {
	var s complex128
	for i, v := range x {
		s += cmplx.Conj(v) * y[i]
	}
	return s
}

// Norm returns the Euclidean norm of x.
func Norm(x []complex128) float64 {
	var s float64
	for _, v := range x {
		s += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(s)
}

type eigenPairs struct {
	vals []float64
	vecs [][]complex128
}

func (p eigenPairs) Len() int           { return len(p.vals) }
func (p eigenPairs) Less(i, j int) bool { return p.vals[i] < p.vals[j] }
func (p eigenPairs) Swap(i, j int) {
	p.vals[i], p.vals[j] = p.vals[j], p.vals[i]
	p.vecs[i], p.vecs[j] = p.vecs[j], p.vecs[i]
}

func sortAscending(vals []float64, vecs [][]complex128) {
	sort.Stable(eigenPairs{vals: vals, vecs: vecs})
}
