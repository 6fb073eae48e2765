package calib

import (
	"fmt"
	"math/cmplx"

	"mriespirit/internal/models"
	"mriespirit/internal/parallel"
	"mriespirit/pkg/linalg"
	"mriespirit/pkg/multind"
)

// CovarianceDims returns the dims of the image covariance computed for a
// kernel window: twice the kernel size on every non-trivial axis and
// channels·(channels+1)/2 packed entries.
func CovarianceDims(kdims [3]int, channels int) [4]int {
	var d [4]int
	for i := 0; i < 3; i++ {
		d[i] = 1
		if kdims[i] != 1 {
			d[i] = 2 * kdims[i]
		}
	}
	d[3] = linalg.PackedSize(channels)
	return d
}

// ComputeImageCovariance expands the retained kernels of basis to the
// covariance grid, transforms them to image space and forms the per-voxel
// channel Gram matrix. The result has dims (xh, yh, zh, C(C+1)/2) in packed
// lower-triangular form, scaled so that keeping every kernel yields the
// identity at every voxel after SincZeropad.
func ComputeImageCovariance(basis *models.KernelBasis, workers int) (*multind.Array, error) {
	kdims := basis.KernelDims()
	channels := basis.Channels()
	n := kdims[0] * kdims[1] * kdims[2] * channels
	nk := basis.Count
	if nk < 0 || nk > basis.Kernels.Dim(4) {
		return nil, fmt.Errorf("%w: %d kernels of %d", ErrDimensions, nk, basis.Kernels.Dim(4))
	}

	cd := CovarianceDims(kdims, channels)
	xh, yh, zh := cd[0], cd[1], cd[2]
	vox := xh * yh * zh
	cosize := cd[3]

	retained, err := multind.FromData(
		[]int{kdims[0], kdims[1], kdims[2], channels, nk},
		basis.Kernels.Data[:n*nk])
	if err != nil {
		return nil, err
	}

	// The kernels annihilate (or span) windows of k-space data; conjugating
	// before the inverse transform gives the image-space vectors whose outer
	// products have the sensitivities as eigenvectors.
	imgkern := multind.New(xh, yh, zh, channels, nk)
	if err := multind.ResizeCenter(imgkern, retained); err != nil {
		return nil, err
	}
	imgkern.Conj()
	imgkern.IFFT(multind.FlagsSpatial)

	kvol := float64(kdims[0] * kdims[1] * kdims[2])
	scale := complex(1/(kvol*float64(vox)), 0)

	cov := multind.New(xh, yh, zh, cosize)

	parallel.For(vox, workers, func(v int) {
		l := 0
		for i := 0; i < channels; i++ {
			for j := 0; j <= i; j++ {
				var g complex128
				for k := 0; k < nk; k++ {
					wi := imgkern.Data[(k*channels+i)*vox+v]
					wj := imgkern.Data[(k*channels+j)*vox+v]
					g += wi * cmplx.Conj(wj)
				}
				if basis.Order == models.NullSpace {
					if i == j {
						g = complex(kvol, 0) - g
					} else {
						g = -g
					}
				}
				cov.Data[l*vox+v] = g * scale
				l++
			}
		}
	})

	return cov, nil
}

// checkZeropad validates the small-to-large grid interpolation: target axes
// must be at least as large as the source, and non-trivial source axes must
// be even.
func checkZeropad(out [3]int, in []int) error {
	for i := 0; i < 3; i++ {
		o, s := out[i], multind.Dim(in, i)
		if !((o == 1 && s == 1) || o >= s) {
			return fmt.Errorf("%w: target %v smaller than covariance grid %v", ErrDimensions, out, in)
		}
		if s != 1 && s%2 != 0 {
			return fmt.Errorf("%w: covariance grid %v has odd axis %d", ErrDimensions, in, i)
		}
	}
	return nil
}

// SincZeropad interpolates the image covariance from its small grid to the
// target spatial grid by zero-padding in k-space. The unnormalized transform
// pair multiplies by the small-grid size, undoing the scaling applied by
// ComputeImageCovariance.
func SincZeropad(out [3]int, cov *multind.Array) (*multind.Array, error) {
	if err := checkZeropad(out, cov.Dims); err != nil {
		return nil, err
	}
	if len(cov.Dims) != 4 {
		return nil, fmt.Errorf("%w: covariance %v needs (x, y, z, packed)", ErrDimensions, cov.Dims)
	}

	tmp := cov.Clone()
	tmp.FFT(multind.FlagsSpatial)

	big := multind.New(out[0], out[1], out[2], cov.Dims[3])
	if err := multind.ResizeCenter(big, tmp); err != nil {
		return nil, err
	}
	big.IFFT(multind.FlagsSpatial)
	return big, nil
}
