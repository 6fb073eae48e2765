package calib

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mriespirit/internal/models"
	"mriespirit/pkg/multind"
)

func TestCovarianceDims(t *testing.T) {
	assert.Equal(t, [4]int{12, 12, 1, 36}, CovarianceDims([3]int{6, 6, 1}, 8))
	assert.Equal(t, [4]int{12, 12, 12, 3}, CovarianceDims([3]int{6, 6, 6}, 2))
}

func TestCheckZeropad(t *testing.T) {
	assert.NoError(t, checkZeropad([3]int{64, 64, 1}, []int{12, 12, 1, 36}))
	assert.NoError(t, checkZeropad([3]int{12, 12, 1}, []int{12, 12, 1}))

	assert.ErrorIs(t, checkZeropad([3]int{10, 64, 1}, []int{12, 12, 1}), ErrDimensions)
	assert.ErrorIs(t, checkZeropad([3]int{64, 64, 1}, []int{11, 12, 1}), ErrDimensions)
	assert.ErrorIs(t, checkZeropad([3]int{64, 64, 1}, []int{12, 12, 2, 3}), ErrDimensions)
}

// Keeping every kernel yields the identity covariance at every voxel.
func TestAllKernelsGiveIdentity(t *testing.T) {
	conf, cal := smallCalibration(t)
	conf.Selection = only(4*4*4, Unset, Unset)

	cov, _, err := CalOne(&conf, cal)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 8, 1, 10}, cov.Dims)

	big, err := SincZeropad([3]int{16, 16, 1}, cov)
	require.NoError(t, err)
	require.Equal(t, []int{16, 16, 1, 10}, big.Dims)

	vox := 16 * 16
	for v := 0; v < vox; v++ {
		l := 0
		for i := 0; i < 4; i++ {
			for j := 0; j <= i; j++ {
				want := complex(0, 0)
				if i == j {
					want = 1
				}
				assert.InDelta(t, 0.0, cmplx.Abs(big.Data[l*vox+v]-want), 1e-8, "voxel %d entry (%d,%d)", v, i, j)
				l++
			}
		}
	}
}

func TestImageCovarianceIsHermitianPSDOnDiagonal(t *testing.T) {
	conf, cal := smallCalibration(t)
	conf.Selection = only(5, Unset, Unset)

	cov, _, err := CalOne(&conf, cal)
	require.NoError(t, err)

	vox := 8 * 8
	for v := 0; v < vox; v++ {
		l := 0
		for i := 0; i < 4; i++ {
			for j := 0; j <= i; j++ {
				if i == j {
					d := cov.Data[l*vox+v]
					assert.InDelta(t, 0.0, imag(d), 1e-12)
					assert.GreaterOrEqual(t, real(d), -1e-12)
				}
				l++
			}
		}
	}
}

func TestComputeImageCovarianceRejectsCount(t *testing.T) {
	basis := &models.KernelBasis{
		Kernels: multind.New(2, 2, 1, 1, 4),
		Count:   5,
	}
	_, err := ComputeImageCovariance(basis, 1)
	assert.ErrorIs(t, err, ErrDimensions)
}

func TestSincZeropadPreservesConstant(t *testing.T) {
	cov := multind.New(4, 4, 1, 1)
	for i := range cov.Data {
		cov.Data[i] = 0.25
	}

	big, err := SincZeropad([3]int{8, 8, 1}, cov)
	require.NoError(t, err)
	for _, v := range big.Data {
		assert.InDelta(t, 0.0, cmplx.Abs(v-4), 1e-9)
	}
}
