package calib

import (
	"fmt"
	"math"
	"math/rand/v2"

	"mriespirit/internal/models"
	"mriespirit/pkg/linalg"
	"mriespirit/pkg/multind"
)

// NumberOfKernels applies the kernel selection policy to the descending
// spectrum vals of length n. The result never exceeds n.
func NumberOfKernels(sel Selection, n int, vals []float64) (int, error) {
	set := 0
	if sel.NumSV != Unset {
		set++
	}
	if sel.PercentSV != Unset {
		set++
	}
	if sel.Threshold != Unset {
		set++
	}
	if set != 1 {
		return 0, fmt.Errorf("%w: %+v", ErrSelection, sel)
	}

	if len(vals) == 0 || vals[0] <= 0 {
		return 0, ErrNoSignal
	}

	var k int
	switch {
	case sel.NumSV != Unset:
		if sel.NumSV < 0 {
			return 0, fmt.Errorf("%w: numsv %d", ErrSelection, sel.NumSV)
		}
		k = sel.NumSV

	case sel.PercentSV != Unset:
		if sel.PercentSV < 0 {
			return 0, fmt.Errorf("%w: percentsv %g", ErrSelection, sel.PercentSV)
		}
		k = int(float64(n) * sel.PercentSV / 100)

	default:
		if sel.Threshold < 0 {
			return 0, fmt.Errorf("%w: threshold %g", ErrSelection, sel.Threshold)
		}
		limit := math.Sqrt(sel.Threshold)
		for i := 0; i < n && i < len(vals); i++ {
			if vals[i]/vals[0] > limit {
				k++
			}
		}
	}

	if k > n {
		k = n
	}
	return k, nil
}

// ComputeKernels derives the kernel basis of a calibration region with dims
// (x, y, z, channels). It returns the basis, holding all N = kx·ky·kz·channels
// vectors with Count set by the selection policy, and the N singular values
// of the calibration matrix in descending order. With Weighting the soft
// weights replace the singular values, both for the selection and in the
// returned spectrum.
//
// Kernel axes are reduced to 1 where the region has extent 1.
func ComputeKernels(conf *Conf, cal *multind.Array) (*models.KernelBasis, []float64, error) {
	if len(cal.Dims) >= 3 {
		conf = fitKernel(conf, cal)
	}
	if err := checkCalibrationRegion(conf.KernelDims, cal); err != nil {
		return nil, nil, err
	}
	log := conf.logger()

	kx, ky, kz := conf.KernelDims[0], conf.KernelDims[1], conf.KernelDims[2]
	channels := cal.Dims[3]
	n := kx * ky * kz * channels

	log.Debug("Build calibration matrix", "kernel", conf.KernelDims, "channels", channels, "strategy", conf.Strategy)
	rows, cols, a := calibrationMatrix(conf.KernelDims, cal)

	// vals descending, vecs[i] belongs to vals[i]
	var vals []float64
	var vecs [][]complex128

	switch conf.Strategy {
	case KernelSVD:
		var err error
		vals, vecs, err = linalg.SVDRight(rows, cols, a)
		if err != nil {
			return nil, nil, fmt.Errorf("calibration matrix SVD: %w", err)
		}

	case KernelGram:
		gram, err := linalg.Gram(rows, cols, a)
		if err != nil {
			return nil, nil, fmt.Errorf("calibration Gram matrix: %w", err)
		}

		log.Debug("Eigen decomposition", "size", n)
		ev, evecs, err := linalg.EigenHerm(gram)
		if err != nil {
			return nil, nil, fmt.Errorf("calibration Gram matrix: %w", err)
		}

		// reverse and take square roots; small negative eigenvalues are
		// rounding errors
		vals = make([]float64, n)
		vecs = make([][]complex128, n)
		for i := 0; i < n; i++ {
			vals[i] = math.Sqrt(math.Max(ev[n-1-i], 0))
			vecs[i] = evecs[n-1-i]
		}

	default:
		return nil, nil, fmt.Errorf("%w: kernel strategy %d", ErrUnsupported, conf.Strategy)
	}

	weights := make([]float64, n)
	if conf.Weighting {
		weights = softWeights(vals)
		vals = weights
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	kernels := multind.New(kx, ky, kz, channels, n)
	for i := 0; i < n; i++ {
		src := i
		if conf.Order == models.NullSpace {
			src = n - 1 - i
		}
		col := kernels.Data[i*n : (i+1)*n]
		for j, v := range vecs[src] {
			col[j] = v * complex(weights[src], 0)
		}
	}

	if conf.Perturb > 0 {
		perturb(kernels.Data, n, conf.Perturb, conf.Seed)
	}

	count, err := NumberOfKernels(conf.Selection, n, vals)
	if err != nil {
		return nil, nil, err
	}

	last := 1.0
	if count > 0 {
		last = vals[count-1] / vals[0]
	}
	log.Debug("Using kernels", "count", count, "total", n,
		"percent", 100*float64(count)/float64(n), "lastSV", last, "weighted", conf.Weighting)

	if conf.Order == models.NullSpace {
		count = n - count
	}

	basis := &models.KernelBasis{
		Kernels: kernels,
		Count:   count,
		Order:   conf.Order,
	}
	return basis, vals, nil
}

// perturb adds complex Gaussian noise of norm amt to each of the n vectors
// of length n stored consecutively in vecs and renormalizes them.
func perturb(vecs []complex128, n int, amt float64, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	noise := make([]complex128, n)

	for j := 0; j < len(vecs)/n; j++ {
		for i := range noise {
			noise[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
		scale := complex(amt/linalg.Norm(noise), 0)

		v := vecs[j*n : (j+1)*n]
		for i := range v {
			v[i] += noise[i] * scale
		}

		if nrm := linalg.Norm(v); nrm > 0 {
			for i := range v {
				v[i] /= complex(nrm, 0)
			}
		}
	}
}
