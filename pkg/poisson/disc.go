package poisson

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// candidates is the number of darts thrown around an active sample before
// it is retired.
const candidates = 30

// relationMatrix returns the pairwise minimum distances between sample
// classes with own-class distances d: r_ii = d_i and
// r_ij = (d_i⁻² + d_j⁻²)^(-1/2).
func relationMatrix(d []float64) [][]float64 {
	r := make([][]float64, len(d))
	for i := range r {
		r[i] = make([]float64, len(d))
		for j := range r[i] {
			if i == j {
				r[i][j] = d[i]
				continue
			}
			r[i][j] = math.Pow(math.Pow(d[i], -2)+math.Pow(d[j], -2), -0.5)
		}
	}
	return r
}

// densityScale stretches the minimum distance with the squared distance
// of p from the k-space centre.
func densityScale(vd float64, p Point) float64 {
	dy := p.Y - 0.5
	dz := p.Z - 0.5
	return 1 + vd*(dy*dy+dz*dz)
}

// poissonDisc grows a Poisson-disc point set in the unit square from the
// centre by active-list dart throwing. Classes are assigned round-robin and
// delta is their relation matrix. At most limit points are produced; a
// result of length limit means the buffer was too small.
func poissonDisc(limit int, vd float64, delta [][]float64, rng *rand.Rand) Points {
	classes := len(delta)
	trees := make([]*kdtree.Tree, classes)
	for i := range trees {
		trees[i] = &kdtree.Tree{}
	}

	first := Point{Y: 0.5, Z: 0.5}
	pts := make(Points, 0, limit)
	pts = append(pts, first)
	trees[0].Insert(first, false)
	active := []int{0}

	for len(active) > 0 && len(pts) < limit {
		a := rng.IntN(len(active))
		base := pts[active[a]]
		class := len(pts) % classes
		r := delta[class][class] * densityScale(vd, base)

		accepted := false
		for try := 0; try < candidates; try++ {
			rho := r * (1 + rng.Float64())
			theta := 2 * math.Pi * rng.Float64()
			q := Point{
				Y:     base.Y + rho*math.Cos(theta),
				Z:     base.Z + rho*math.Sin(theta),
				Class: class,
			}
			if q.Y < 0 || q.Y >= 1 || q.Z < 0 || q.Z >= 1 {
				continue
			}
			if !fits(q, trees, delta, vd) {
				continue
			}

			pts = append(pts, q)
			trees[class].Insert(q, false)
			active = append(active, len(pts)-1)
			accepted = true
			break
		}

		if !accepted {
			active[a] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}
	return pts
}

// fits reports whether q keeps its class distance to the nearest sample
// of every class.
func fits(q Point, trees []*kdtree.Tree, delta [][]float64, vd float64) bool {
	s := densityScale(vd, q)
	for j, t := range trees {
		if t.Count == 0 {
			continue
		}
		_, d2 := t.Nearest(q)
		r := delta[q.Class][j] * s
		if d2 < r*r {
			return false
		}
	}
	return true
}

// randomPoints draws n uniform points in the unit square with round-robin
// classes.
func randomPoints(n, classes int, rng *rand.Rand) Points {
	pts := make(Points, n)
	for i := range pts {
		pts[i] = Point{Y: rng.Float64(), Z: rng.Float64(), Class: i % classes}
	}
	return pts
}
