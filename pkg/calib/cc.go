package calib

import (
	"fmt"
	"math/cmplx"

	"mriespirit/pkg/linalg"
	"mriespirit/pkg/multind"
)

// CoilCompressionRotation returns the coil compression matrix of the
// calibration data (x, y, z, channels), strongest component first: virtual
// channel k is Σ_c rot[k][c]·x_c, so row k is the conjugate of the k-th
// principal component of the channel covariance. Row 0 is the phase
// reference used when RotPhase is set.
func CoilCompressionRotation(cal *multind.Array) ([][]complex128, error) {
	if len(cal.Dims) < 4 {
		return nil, fmt.Errorf("%w: calibration region %v needs (x, y, z, channels)", ErrDimensions, cal.Dims)
	}
	channels := cal.Dims[3]
	vox := cal.Dims[0] * cal.Dims[1] * cal.Dims[2]

	cov := linalg.NewHerm(channels)
	for i := 0; i < channels; i++ {
		for j := 0; j <= i; j++ {
			var s complex128
			for v := 0; v < vox; v++ {
				s += cal.Data[i*vox+v] * cmplx.Conj(cal.Data[j*vox+v])
			}
			cov.Set(i, j, s)
			cov.Set(j, i, cmplx.Conj(s))
		}
	}

	_, vecs, err := linalg.EigenHerm(cov)
	if err != nil {
		return nil, fmt.Errorf("coil compression: %w", err)
	}

	rot := make([][]complex128, channels)
	for i := range rot {
		v := vecs[channels-1-i]
		rot[i] = make([]complex128, channels)
		for c := range v {
			rot[i][c] = cmplx.Conj(v[c])
		}
	}
	return rot, nil
}
