package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EigenHerm computes all eigenvalues of the Hermitian matrix h in ascending
// order together with unit eigenvectors; vecs[k] belongs to vals[k].
func EigenHerm(h *Herm) (vals []float64, vecs [][]complex128, err error) {
	var es mat.EigenSym
	if ok := es.Factorize(h.embed(), true); !ok {
		return nil, nil, fmt.Errorf("%w: symmetric eigendecomposition of size %d", ErrNoConvergence, 2*h.N)
	}

	rv := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)

	return complexify(h.N, rv, &ev)
}

// SVDRight computes the singular values of the m×n row-major complex matrix a
// in descending order together with the right singular vectors. Both have
// length n; when m < n the missing singular values are zero.
func SVDRight(m, n int, a []complex128) (vals []float64, vecs [][]complex128, err error) {
	if len(a) != m*n {
		return nil, nil, fmt.Errorf("%w: %d elements for %dx%d", ErrShape, len(a), m, n)
	}

	var svd mat.SVD
	if ok := svd.Factorize(embedGeneral(m, n, a), mat.SVDFullV); !ok {
		return nil, nil, fmt.Errorf("%w: SVD of %dx%d", ErrNoConvergence, 2*m, 2*n)
	}

	sv := svd.Values(nil)
	rv := make([]float64, 2*n)
	copy(rv, sv)

	var v mat.Dense
	svd.VTo(&v)

	return complexify(n, rv, &v)
}

// Gram returns the Hermitian n×n matrix AᴴA of the m×n row-major complex
// matrix a, computed from the real and imaginary parts with gonum products.
func Gram(m, n int, a []complex128) (*Herm, error) {
	if len(a) != m*n {
		return nil, fmt.Errorf("%w: %d elements for %dx%d", ErrShape, len(a), m, n)
	}

	ar := mat.NewDense(m, n, nil)
	ai := mat.NewDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			ar.Set(i, j, real(a[i*n+j]))
			ai.Set(i, j, imag(a[i*n+j]))
		}
	}

	// Re(AᴴA) = ArᵀAr + AiᵀAi, Im(AᴴA) = ArᵀAi - AiᵀAr
	var re, tmp, im mat.Dense
	re.Mul(ar.T(), ar)
	tmp.Mul(ai.T(), ai)
	re.Add(&re, &tmp)

	im.Mul(ar.T(), ai)
	tmp.Mul(ai.T(), ar)
	im.Sub(&im, &tmp)

	h := NewHerm(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			h.Set(i, j, complex(re.At(i, j), im.At(i, j)))
		}
	}
	return h, nil
}

// complexify turns the eigen- or singular vectors of a real embedding into
// complex vectors of length n. rv holds the 2n real values in monotone order
// and the columns of v the matching real vectors.
//
// Each complex direction z appears in the embedding as the pair [x; y] and
// J[x; y] = [-y; x]. Values are grouped into clusters of (numerically) equal
// values; inside a cluster the column with the largest remaining norm is
// accepted and both it and its J-partner are projected out of the others.
// Each accepted vector is orthogonal to all previously accepted ones in the
// complex sense.
func complexify(n int, rv []float64, v mat.Matrix) ([]float64, [][]complex128, error) {
	m := len(rv)
	scale := math.Max(math.Abs(floats.Max(rv)), math.Abs(floats.Min(rv)))
	tol := 1e-9 * scale
	if tol == 0 {
		tol = math.SmallestNonzeroFloat64
	}

	vals := make([]float64, 0, n)
	vecs := make([][]complex128, 0, n)

	for start := 0; start < m; {
		end := start + 1
		for end < m && math.Abs(rv[end]-rv[end-1]) <= tol {
			end++
		}

		cand := make([][]float64, 0, end-start)
		candVal := make([]float64, 0, end-start)
		for k := start; k < end; k++ {
			cand = append(cand, mat.Col(nil, k, v))
			candVal = append(candVal, rv[k])
		}

		want := (end - start + 1) / 2
		for picked := 0; picked < want && len(vecs) < n && len(cand) > 0; picked++ {
			best, bestNorm := -1, 0.0
			for i, c := range cand {
				if nrm := floats.Norm(c, 2); nrm > bestNorm {
					best, bestNorm = i, nrm
				}
			}
			if best < 0 || bestNorm < 1e-8 {
				break
			}

			u := cand[best]
			floats.Scale(1/bestNorm, u)
			w := make([]float64, 2*n)
			for i := 0; i < n; i++ {
				w[i] = -u[n+i]
				w[n+i] = u[i]
			}

			z := make([]complex128, n)
			for i := 0; i < n; i++ {
				z[i] = complex(u[i], u[n+i])
			}
			vals = append(vals, candVal[best])
			vecs = append(vecs, z)

			cand = append(cand[:best], cand[best+1:]...)
			candVal = append(candVal[:best], candVal[best+1:]...)
			for _, c := range cand {
				floats.AddScaled(c, -floats.Dot(c, u), u)
				floats.AddScaled(c, -floats.Dot(c, w), w)
			}
		}

		start = end
	}

	if len(vecs) != n {
		return nil, nil, fmt.Errorf("%w: recovered %d of %d complex vectors", ErrNoConvergence, len(vecs), n)
	}
	return vals, vecs, nil
}
