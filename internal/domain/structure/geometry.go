package structure

import (
	"math"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Dimensions returns the box edge lengths along x, y and z.
func (b AABB) Dimensions() Vec3 {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies inside the box, boundaries included.
func (b AABB) Contains(p Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsBox reports whether o lies entirely within b.
func (b AABB) ContainsBox(o AABB) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// BoundingBox computes the AABB of coords.  It fails with InvalidStructure on
// an empty set or a non-finite coordinate.
func BoundingBox(coords []Vec3) (AABB, error) {
	if len(coords) == 0 {
		return AABB{}, errors.InvalidStructure("cannot bound an empty coordinate set")
	}
	box := AABB{
		Min: Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for i, c := range coords {
		if !c.IsFinite() {
			return AABB{}, errors.InvalidStructure("non-finite coordinate").WithDetailf("index %d: %v", i, c)
		}
		for k := 0; k < 3; k++ {
			box.Min[k] = math.Min(box.Min[k], c[k])
			box.Max[k] = math.Max(box.Max[k], c[k])
		}
	}
	return box, nil
}

// Centroid returns the arithmetic mean of coords.  An empty set yields the
// origin.
func Centroid(coords []Vec3) Vec3 {
	if len(coords) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, c := range coords {
		sum = sum.Add(c)
	}
	return sum.Scale(1 / float64(len(coords)))
}

// RMSD returns the positional root-mean-square deviation between a and b with
// atoms matched by index.  No superposition is performed: poses docked into
// the same receptor frame are compared in place.
func RMSD(a, b []Vec3) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.InvalidParam("rmsd requires equal atom counts").
			WithDetailf("%d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, errors.InvalidParam("rmsd of empty coordinate sets")
	}
	var sum float64
	for i := range a {
		sum += a[i].Dist2(b[i])
	}
	return math.Sqrt(sum / float64(len(a))), nil
}

// Span returns the largest edge of the bounding box of coords.
func Span(coords []Vec3) float64 {
	box, err := BoundingBox(coords)
	if err != nil {
		return 0
	}
	d := box.Dimensions()
	return math.Max(d[0], math.Max(d[1], d[2]))
}

//Personal.AI order the ending
