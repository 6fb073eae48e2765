package calib

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mriespirit/internal/models"
	"mriespirit/pkg/multind"
)

func TestExtractCalibrationRegion(t *testing.T) {
	kspace := multind.New(8, 6, 1, 2)
	for i := range kspace.Data {
		kspace.Data[i] = complex(float64(i), 0)
	}

	cal, err := ExtractCalibrationRegion(kspace, [3]int{4, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 1, 2}, cal.Dims)

	// centres coincide
	assert.Equal(t, kspace.At(4, 3, 0, 1), cal.At(2, 2, 0, 1))

	_, err = ExtractCalibrationRegion(kspace, [3]int{10, 4, 1})
	assert.ErrorIs(t, err, ErrDimensions)

	_, err = ExtractCalibrationRegion(multind.New(8, 8), [3]int{4, 4, 1})
	assert.ErrorIs(t, err, ErrDimensions)
}

func TestCoilCompressionRotation(t *testing.T) {
	dir := []complex128{1, 2i, -1, 0.5}
	cal := multind.New(3, 3, 1, 4)
	vox := 9
	for v := 0; v < vox; v++ {
		s := complex(float64(v+1), float64(v%3))
		for c, d := range dir {
			cal.Data[c*vox+v] = s * d
		}
	}

	rot, err := CoilCompressionRotation(cal)
	require.NoError(t, err)
	require.Len(t, rot, 4)

	var p complex128
	var nd float64
	for c, d := range dir {
		p += rot[0][c] * d
		nd += real(d * cmplx.Conj(d))
	}
	assert.InDelta(t, 1.0, cmplx.Abs(p)/math.Sqrt(nd), 1e-9)
}

// phantomCalibration returns the 24×24 calibration region of a 64×64
// 8-channel phantom, its sensitivities and the matching configuration.
func phantomCalibration(t *testing.T) (Conf, *multind.Array, *multind.Array) {
	t.Helper()
	kspace, sens := phantomKSpace(64, 8)
	cal, err := ExtractCalibrationRegion(kspace, [3]int{24, 24, 24})
	require.NoError(t, err)
	require.Equal(t, []int{24, 24, 1, 8}, cal.Dims)

	conf := quietConf()
	conf.KernelDims = [3]int{6, 6, 1}
	return conf, cal, sens
}

// checkPhantomMaps verifies the structural guarantees of a calibration of
// the phantom and that the leading map matches the coil profiles in the
// middle of the object.
func checkPhantomMaps(t *testing.T, res *Result, sens *multind.Array) {
	t.Helper()

	n := 6 * 6 * 8
	require.Len(t, res.Spectrum, n)
	assert.Equal(t, []int{64, 64, 1, 8, 2}, res.Maps.Dims)
	assert.Equal(t, []int{64, 64, 1, 1, 2}, res.Values.Dims)

	vox := res.Voxels()
	for v := 0; v < vox; v++ {
		l0 := real(res.Values.Data[v])
		l1 := real(res.Values.Data[vox+v])
		assert.GreaterOrEqual(t, l0, l1-1e-9, "voxel %d", v)
		assert.LessOrEqual(t, l0, 1+1e-6, "voxel %d", v)
	}

	centre := res.Values.At(32, 32, 0, 0, 0)
	assert.Greater(t, real(centre), 0.9)

	var p complex128
	var ns, nm float64
	for c := 0; c < 8; c++ {
		s := sens.At(32, 32, 0, c)
		m := res.Maps.At(32, 32, 0, c, 0)
		p += cmplx.Conj(s) * m
		ns += real(s * cmplx.Conj(s))
		nm += real(m * cmplx.Conj(m))
	}
	assert.Greater(t, cmplx.Abs(p)/math.Sqrt(ns*nm), 0.95)
}

func TestCalibPhantom(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full calibration in short mode")
	}
	conf, cal, sens := phantomCalibration(t)

	res, err := Calib(&conf, [3]int{64, 64, 1}, 2, cal, nil)
	require.NoError(t, err)
	checkPhantomMaps(t, res, sens)

	for i := 1; i < len(res.Spectrum); i++ {
		assert.LessOrEqual(t, res.Spectrum[i], res.Spectrum[i-1]+1e-9*res.Spectrum[0])
	}

	// intensity normalization: L1 norm √C where not cropped
	vox := res.Voxels()
	v := res.Maps.Index(32, 32, 0, 0, 0)
	var l1 float64
	for c := 0; c < 8; c++ {
		l1 += cmplx.Abs(res.Maps.Data[c*vox+v])
	}
	assert.InDelta(t, math.Sqrt(8), l1, 1e-9)

	// phase fixed to the first channel
	first := res.Maps.Data[v]
	assert.InDelta(t, 0.0, imag(first), 1e-9)
	assert.GreaterOrEqual(t, real(first), 0.0)
}

func TestCalibPhantomVariants(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full calibration in short mode")
	}

	variants := map[string]func(*Conf){
		"dense":    func(c *Conf) { c.OrthIter = false },
		"svd":      func(c *Conf) { c.Strategy = KernelSVD },
		"null":     func(c *Conf) { c.Order = models.NullSpace },
		"rotphase": func(c *Conf) { c.RotPhase = true },
		"softcrop": func(c *Conf) { c.SoftCrop = true },
	}
	for name, adjust := range variants {
		t.Run(name, func(t *testing.T) {
			conf, cal, sens := phantomCalibration(t)
			adjust(&conf)

			res, err := Calib(&conf, [3]int{64, 64, 1}, 2, cal, nil)
			require.NoError(t, err)
			checkPhantomMaps(t, res, sens)
		})
	}
}

func TestCalibDefaultKernelOn2DData(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full calibration in short mode")
	}
	_, cal, sens := phantomCalibration(t)

	conf := DefaultConf()
	conf.Logger = quietConf().Logger
	conf.NumWorkers = 4
	require.Equal(t, [3]int{6, 6, 6}, conf.KernelDims)

	res, err := Calib(&conf, [3]int{64, 64, 1}, 2, cal, nil)
	require.NoError(t, err)
	checkPhantomMaps(t, res, sens)
	assert.Equal(t, [3]int{6, 6, 6}, conf.KernelDims)

	cov, _, err := CalOne(&conf, cal)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 12, 1, 36}, cov.Dims)
}

func TestCalibMask(t *testing.T) {
	conf, cal, _ := phantomCalibration(t)
	conf.Selection = only(Unset, 25, Unset)

	mask := &models.Mask{Dims: [3]int{32, 32, 1}, Data: make([]bool, 32*32)}
	mask.Data[16*32+16] = true

	res, err := Calib(&conf, [3]int{32, 32, 1}, 1, cal, mask)
	require.NoError(t, err)

	vox := res.Voxels()
	for v := 0; v < vox; v++ {
		if v == 16*32+16 {
			assert.NotEqual(t, complex(0, 0), res.Values.Data[v])
			continue
		}
		assert.Equal(t, complex(0, 0), res.Values.Data[v])
		for c := 0; c < 8; c++ {
			assert.Equal(t, complex(0, 0), res.Maps.Data[c*vox+v])
		}
	}
}

func TestCalOneCalTwoMatchesCalibBeforePostProcessing(t *testing.T) {
	conf, cal, _ := phantomCalibration(t)
	conf.Selection = only(Unset, 25, Unset)
	conf.Intensity = false
	conf.Crop = 0

	cov, svals, err := CalOne(&conf, cal)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 12, 1, 36}, cov.Dims)
	assert.Len(t, svals, 288)

	em, err := CalTwo(&conf, [3]int{24, 24, 1}, 1, cov, nil)
	require.NoError(t, err)

	res, err := Calib(&conf, [3]int{24, 24, 1}, 1, cal, nil)
	require.NoError(t, err)

	assert.Equal(t, em.Values.Data, res.Values.Data)
}

func TestCalibErrors(t *testing.T) {
	conf, cal, _ := phantomCalibration(t)
	out := [3]int{64, 64, 1}

	gpu := conf
	gpu.UseGPU = true
	_, err := Calib(&gpu, out, 2, cal, nil)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Calib(&conf, out, 9, cal, nil)
	assert.ErrorIs(t, err, ErrDimensions)

	_, err = Calib(&conf, [3]int{8, 64, 1}, 2, cal, nil)
	assert.ErrorIs(t, err, ErrDimensions)

	_, err = Calib(&conf, out, 2, cal, models.NewMask(32, 32, 1))
	assert.ErrorIs(t, err, ErrDimensions)

	odd := conf
	odd.KernelDims = [3]int{25, 6, 1}
	_, err = Calib(&odd, out, 2, cal, nil)
	assert.ErrorIs(t, err, ErrDimensions)

	both := conf
	both.Selection.NumSV = 10
	_, err = Calib(&both, out, 2, cal, nil)
	assert.ErrorIs(t, err, ErrSelection)

	_, err = Calib(&conf, out, 2, multind.New(24, 24, 1, 8), nil)
	assert.ErrorIs(t, err, ErrNoSignal)
}
