package poisson

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/stat"

	"mriespirit/pkg/multind"
)

// Pattern is a generated sampling pattern.
type Pattern struct {
	// Points are the kept samples in the unit square
	Points Points

	// Mask has dims (1, Y, Z, T, 1) with 1 at sampled cells; nil without
	// mask output
	Mask *multind.Array

	// Samples has dims (3, P) holding (0, y, z) k-space coordinates
	// relative to the centre; nil with mask output
	Samples *multind.Array

	// Count is the number of samples including cells added by the
	// calibration square
	Count int

	// MinDistance is the guaranteed distance between any two points in
	// unit-square coordinates; 0 in random mode
	MinDistance float64

	Y, Z       int
	Classes    int
	Elliptical bool

	cells []*roaring.Bitmap
}

// Generate draws a sampling pattern.
func Generate(p *Params) (*Pattern, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := p.logger()
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x5851f42d4c957f2d))

	ext := float64(max(p.Y, p.Z))
	pest := p.Classes * int(1.2*ext*ext/(p.AccelY*p.AccelZ))

	mind := p.MinDistance / ext
	ys := p.AccelY * ext / float64(p.Y)
	zs := p.AccelZ * ext / float64(p.Z)

	dd := make([]float64, p.Classes)
	for i := range dd {
		dd[i] = mind
	}
	delta := relationMatrix(dd)

	limit := pest
	if p.Random {
		limit = p.RandomPoints + 1
	}
	limit = max(limit, 2)

	var pts Points
	for {
		if p.Random {
			pts = randomPoints(limit-1, p.Classes, rng)
		} else {
			pts = poissonDisc(limit, p.VarDensity, delta, rng)
		}
		if len(pts) < limit {
			break
		}
		log.Debug("Sample buffer full, retrying", "capacity", limit, "next", 2*limit)
		limit *= 2
	}

	kept := pts[:0]
	for _, q := range pts {
		q.Y = (q.Y-0.5)*ys + 0.5
		q.Z = (q.Z-0.5)*zs + 0.5
		if inside(q, p.Elliptical) {
			kept = append(kept, q)
		}
	}

	pat := &Pattern{
		Points:     kept,
		Count:      len(kept),
		Y:          p.Y,
		Z:          p.Z,
		Classes:    p.Classes,
		Elliptical: p.Elliptical,
	}
	if !p.Random {
		dmin := math.Inf(1)
		for _, row := range delta {
			for _, d := range row {
				dmin = math.Min(dmin, d)
			}
		}
		pat.MinDistance = dmin * math.Min(ys, zs)
	}

	if p.Mask {
		pat.rasterize()
		pat.stampCalibration(p.CalibSize)
		pat.Mask = pat.maskArray()
	} else {
		pat.Samples = pat.coordinates()
	}

	log.Debug("Sampling pattern", "points", pat.Count, "generated", len(pts), "capacity", limit)
	return pat, nil
}

// inside reports whether q lies in the acceptance region around the centre:
// the inscribed disc when elliptical, the unit square otherwise.
func inside(q Point, elliptical bool) bool {
	dy := math.Abs(q.Y - 0.5)
	dz := math.Abs(q.Z - 0.5)
	if elliptical {
		return math.Hypot(dy, dz) <= 0.5
	}
	return math.Max(dy, dz) <= 0.5
}

func (pat *Pattern) cell(q Point) (int, bool) {
	y := int(math.Floor(q.Y * float64(pat.Y)))
	z := int(math.Floor(q.Z * float64(pat.Z)))
	if y < 0 || y >= pat.Y || z < 0 || z >= pat.Z {
		return 0, false
	}
	return z*pat.Y + y, true
}

// rasterize records the grid cell of every point in the bitmap of its class.
func (pat *Pattern) rasterize() {
	pat.cells = make([]*roaring.Bitmap, pat.Classes)
	for i := range pat.cells {
		pat.cells[i] = roaring.New()
	}
	for _, q := range pat.Points {
		if c, ok := pat.cell(q); ok {
			pat.cells[q.Class].Add(uint32(c))
		}
	}
}

// stampCalibration fully samples the centred size×size square in every
// class and counts the cells that were not sampled yet.
func (pat *Pattern) stampCalibration(size int) {
	y0 := (pat.Y - size) / 2
	z0 := (pat.Z - size) / 2
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			c := uint32((z0+j)*pat.Y + y0 + i)
			for _, b := range pat.cells {
				if b.CheckedAdd(c) {
					pat.Count++
				}
			}
		}
	}
}

func (pat *Pattern) maskArray() *multind.Array {
	mask := multind.New(1, pat.Y, pat.Z, pat.Classes, 1)
	plane := pat.Y * pat.Z
	for k, b := range pat.cells {
		it := b.Iterator()
		for it.HasNext() {
			mask.Data[k*plane+int(it.Next())] = 1
		}
	}
	return mask
}

func (pat *Pattern) coordinates() *multind.Array {
	s := multind.New(3, len(pat.Points))
	for i, q := range pat.Points {
		s.Data[3*i+1] = complex((q.Y-0.5)*float64(pat.Y), 0)
		s.Data[3*i+2] = complex((q.Z-0.5)*float64(pat.Z), 0)
	}
	return s
}

// Sampled reports whether cell (y, z) of class k is sampled. It is only
// meaningful for patterns with mask output.
func (pat *Pattern) Sampled(y, z, k int) bool {
	if k < 0 || k >= len(pat.cells) {
		return false
	}
	return pat.cells[k].Contains(uint32(z*pat.Y + y))
}

// gridFraction is the share of the grid inside the acceptance region.
func (pat *Pattern) gridFraction() float64 {
	if pat.Elliptical {
		return math.Pi / 4
	}
	return 1
}

// Acceleration is the effective acceleration factor R of the pattern.
func (pat *Pattern) Acceleration() float64 {
	return pat.gridFraction() * float64(pat.Classes*pat.Y*pat.Z) / float64(pat.Count)
}

// Summary returns the one-line description printed by the sampling tool.
func (pat *Pattern) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "points: %d", pat.Count)
	if pat.Classes != 1 {
		fmt.Fprintf(&b, ", classes: %d", pat.Classes)
	}
	if pat.Mask != nil {
		suffix := ""
		if pat.Elliptical {
			suffix = "x(pi/4)"
		}
		f := pat.gridFraction()
		fmt.Fprintf(&b, ", grid size: %dx%d%s = %d (R = %f)", pat.Y, pat.Z, suffix,
			int64(f*float64(pat.Y*pat.Z)), pat.Acceleration())
	}
	return b.String()
}

// Spacing returns the mean and standard deviation of the nearest-neighbour
// distance between points in grid units.
func (pat *Pattern) Spacing() (mean, std float64) {
	if len(pat.Points) < 2 {
		return 0, 0
	}

	grid := make(Points, len(pat.Points))
	for i, q := range pat.Points {
		grid[i] = Point{Y: q.Y * float64(pat.Y), Z: q.Z * float64(pat.Z), Class: q.Class}
	}
	queries := append(Points(nil), grid...)
	tree := kdtree.New(grid, false)

	dists := make([]float64, 0, len(queries))
	for _, q := range queries {
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, q)

		nearest := math.Inf(1)
		for _, item := range keeper.Heap {
			if item.Comparable == nil || item.Dist == 0 {
				continue
			}
			nearest = math.Min(nearest, item.Dist)
		}
		if !math.IsInf(nearest, 1) {
			dists = append(dists, math.Sqrt(nearest))
		}
	}
	return stat.MeanStdDev(dists, nil)
}
