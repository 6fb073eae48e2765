package poisson

import (
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams(y, z int, accy, accz float64) *Params {
	p := DefaultParams()
	p.Y, p.Z = y, z
	p.AccelY, p.AccelZ = accy, accz
	p.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return &p
}

func distance(a, b Point) float64 {
	return math.Hypot(a.Y-b.Y, a.Z-b.Z)
}

// assertSpacing checks the minimum distance of every pair of points, or
// only of pairs within one class when sameClass is set.
func assertSpacing(t *testing.T, pts Points, minDist float64, sameClass bool) {
	t.Helper()
	worst := math.Inf(1)
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if sameClass && pts[i].Class != pts[j].Class {
				continue
			}
			worst = math.Min(worst, distance(pts[i], pts[j]))
		}
	}
	assert.GreaterOrEqual(t, worst, minDist*(1-1e-9))
}

func TestGenerateMinimumDistance(t *testing.T) {
	p := testParams(64, 64, 2, 2)

	pat, err := Generate(p)
	require.NoError(t, err)
	require.NotEmpty(t, pat.Points)

	assert.InDelta(t, 2/(1.275*64), pat.MinDistance, 1e-12)
	assertSpacing(t, pat.Points, pat.MinDistance, false)

	for _, q := range pat.Points {
		assert.True(t, inside(q, false))
	}
}

func TestGenerateAnisotropic(t *testing.T) {
	p := testParams(64, 48, 3, 1)

	pat, err := Generate(p)
	require.NoError(t, err)
	assertSpacing(t, pat.Points, pat.MinDistance, false)
	assert.Equal(t, []int{1, 64, 48, 1, 1}, pat.Mask.Dims)
}

func TestGenerateElliptical(t *testing.T) {
	p := testParams(64, 64, 2, 2)
	p.Elliptical = true

	pat, err := Generate(p)
	require.NoError(t, err)
	for _, q := range pat.Points {
		assert.LessOrEqual(t, math.Hypot(q.Y-0.5, q.Z-0.5), 0.5)
	}
	assert.Contains(t, pat.Summary(), "x(pi/4)")

	p.Elliptical = false
	square, err := Generate(p)
	require.NoError(t, err)
	assert.Less(t, pat.Count, square.Count)
}

func TestGenerateAcceleration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-size pattern in short mode")
	}
	p := testParams(128, 128, 2, 2)

	pat, err := Generate(p)
	require.NoError(t, err)

	// area / (accY·accZ) within 20%
	assert.InEpsilon(t, 128*128/4, pat.Count, 0.2)
	r := pat.Acceleration()
	assert.GreaterOrEqual(t, r, 4/1.2)
	assert.LessOrEqual(t, r, 4/0.8)

	assert.Regexp(t, regexp.MustCompile(`^points: \d+, grid size: 128x128 = 16384 \(R = \d+\.\d{6}\)$`), pat.Summary())
}

func TestGenerateCalibrationRegion(t *testing.T) {
	p := testParams(64, 64, 2, 2)
	p.CalibSize = 16

	pat, err := Generate(p)
	require.NoError(t, err)

	for y := 24; y < 40; y++ {
		for z := 24; z < 40; z++ {
			assert.True(t, pat.Sampled(y, z, 0), "cell (%d, %d)", y, z)
			assert.Equal(t, complex(1, 0), pat.Mask.At(0, y, z, 0, 0))
		}
	}

	ones := 0
	for _, v := range pat.Mask.Data {
		if v != 0 {
			ones++
		}
	}
	assert.Equal(t, ones, pat.Count)
	assert.GreaterOrEqual(t, pat.Count, 256)
}

func TestGenerateCoordinates(t *testing.T) {
	p := testParams(64, 32, 2, 1)
	p.Mask = false

	pat, err := Generate(p)
	require.NoError(t, err)
	assert.Nil(t, pat.Mask)
	require.NotNil(t, pat.Samples)
	assert.Equal(t, []int{3, len(pat.Points)}, pat.Samples.Dims)

	for i := range pat.Points {
		assert.Equal(t, complex(0, 0), pat.Samples.Data[3*i])
		assert.LessOrEqual(t, math.Abs(real(pat.Samples.Data[3*i+1])), 32.0)
		assert.LessOrEqual(t, math.Abs(real(pat.Samples.Data[3*i+2])), 16.0)
	}
	assert.Equal(t, "points: "+strconv.Itoa(pat.Count), pat.Summary())
}

func TestGenerateRandom(t *testing.T) {
	p := testParams(32, 32, 1, 1)
	p.Random = true
	p.RandomPoints = 300

	pat, err := Generate(p)
	require.NoError(t, err)
	assert.Equal(t, 300, len(pat.Points))
	assert.Equal(t, 0.0, pat.MinDistance)

	p.AccelY = 2
	scaled, err := Generate(p)
	require.NoError(t, err)
	assert.Less(t, len(scaled.Points), 300)
}

func TestGenerateMultiClass(t *testing.T) {
	p := testParams(48, 48, 2, 2)
	p.Classes = 2

	pat, err := Generate(p)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 48, 48, 2, 1}, pat.Mask.Dims)
	assert.Contains(t, pat.Summary(), "classes: 2")

	own := 2 / (1.275 * 48)
	assertSpacing(t, pat.Points, own, true)
	assertSpacing(t, pat.Points, pat.MinDistance, false)
	assert.InDelta(t, own/math.Sqrt2, pat.MinDistance, 1e-12)

	perClass := [2]int{}
	for _, q := range pat.Points {
		perClass[q.Class]++
	}
	assert.Greater(t, perClass[0], 0)
	assert.Greater(t, perClass[1], 0)
}

func TestVariableDensityThinsPeriphery(t *testing.T) {
	p := testParams(64, 64, 1, 1)
	uniform, err := Generate(p)
	require.NoError(t, err)

	p.VarDensity = 20
	vd, err := Generate(p)
	require.NoError(t, err)

	assert.Less(t, vd.Count, uniform.Count)
	assertSpacing(t, vd.Points, vd.MinDistance, false)
}

func TestGenerateDeterministic(t *testing.T) {
	p := testParams(32, 32, 1.5, 1.5)
	p.Seed = 99

	a, err := Generate(p)
	require.NoError(t, err)
	b, err := Generate(p)
	require.NoError(t, err)
	assert.Equal(t, a.Points, b.Points)
}

func TestSpacing(t *testing.T) {
	p := testParams(64, 64, 2, 2)
	pat, err := Generate(p)
	require.NoError(t, err)

	mean, std := pat.Spacing()
	assert.GreaterOrEqual(t, mean, pat.MinDistance*64*(1-1e-9))
	assert.Less(t, mean, 2*2*pat.MinDistance*64)
	assert.GreaterOrEqual(t, std, 0.0)

	empty := &Pattern{Y: 8, Z: 8}
	mean, std = empty.Spacing()
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)
}

func TestRelationMatrix(t *testing.T) {
	r := relationMatrix([]float64{1, 1, 2})
	assert.Equal(t, 1.0, r[0][0])
	assert.Equal(t, 2.0, r[2][2])
	assert.InDelta(t, 1/math.Sqrt2, r[0][1], 1e-12)
	assert.InDelta(t, math.Pow(1+0.25, -0.5), r[0][2], 1e-12)
	assert.Equal(t, r[0][2], r[2][0])
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		adjust func(*Params)
	}{
		{"empty grid", func(p *Params) { p.Y = 0 }},
		{"acceleration below one", func(p *Params) { p.AccelZ = 0.5 }},
		{"no classes", func(p *Params) { p.Classes = 0 }},
		{"negative density", func(p *Params) { p.VarDensity = -1 }},
		{"random without points", func(p *Params) { p.Random = true }},
		{"zero distance", func(p *Params) { p.MinDistance = 0 }},
		{"calibration without mask", func(p *Params) { p.CalibSize = 8; p.Mask = false }},
		{"calibration larger than grid", func(p *Params) { p.CalibSize = 200 }},
		{"negative calibration", func(p *Params) { p.CalibSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.adjust(&p)
			_, err := Generate(&p)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	p := DefaultParams()
	assert.NoError(t, p.Validate())
}
