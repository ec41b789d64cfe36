package digistrip

// Corner ordering functionality.

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned when four corner points are degenerate
// (coincident, or three or more collinear) and cannot describe a
// quadrilateral region.
var ErrInvalidGeometry = errors.New("invalid corner geometry")

// Point is a position in source-image pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Quad is a quadrilateral with its corners in canonical order:
// top-left, top-right, bottom-right, bottom-left.
type Quad [4]Point

// OrderFunc canonicalizes four unordered corner points into a Quad. It must
// return the same Quad for any permutation of the same four points.
type OrderFunc func(pts [4]Point) (Quad, error)

// collinearEps is the minimum absolute cross product magnitude for three
// points to count as spanning an area.
const collinearEps = 1e-9

// OrderPoints sorts four corner points into (TL, TR, BR, BL) order.
//
// The point with the smallest x+y becomes the top-left corner and the one
// with the largest x+y the bottom-right; of the remaining two, the point
// with the smaller y-x is the top-right and the other the bottom-left.
// Exact ties on either key are broken by the smaller y coordinate, so the
// result never depends on the order the points arrive in. The heuristic
// assumes moderate rotation (under ~45 degrees).
//
// Returns ErrInvalidGeometry if any points coincide or any three of them are
// collinear, since no corner order would be meaningful in that case.
func OrderPoints(pts [4]Point) (Quad, error) {
	if err := checkGeometry(pts); err != nil {
		return Quad{}, err
	}

	// TL minimizes x+y, BR maximizes it. A tie on the sum with equal y
	// would mean coincident points, which checkGeometry has excluded, so
	// sumLess is a total order here.
	sumLess := func(a, b Point) bool {
		if a.X+a.Y != b.X+b.Y {
			return a.X+a.Y < b.X+b.Y
		}
		return a.Y < b.Y
	}
	iTL, iBR := 0, 0
	for i := 1; i < 4; i++ {
		if sumLess(pts[i], pts[iTL]) {
			iTL = i
		}
		if sumLess(pts[iBR], pts[i]) {
			iBR = i
		}
	}

	// Of the remaining two points, TR minimizes y-x.
	rest := make([]int, 0, 2)
	for i := 0; i < 4; i++ {
		if i != iTL && i != iBR {
			rest = append(rest, i)
		}
	}
	diffLess := func(a, b Point) bool {
		if a.Y-a.X != b.Y-b.X {
			return a.Y-a.X < b.Y-b.X
		}
		return a.Y < b.Y
	}
	iTR, iBL := rest[0], rest[1]
	if diffLess(pts[iBL], pts[iTR]) {
		iTR, iBL = iBL, iTR
	}

	return Quad{pts[iTL], pts[iTR], pts[iBR], pts[iBL]}, nil
}

// checkGeometry verifies that the four points are pairwise distinct and that
// no three of them are collinear.
func checkGeometry(pts [4]Point) error {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if pts[i] == pts[j] {
				return fmt.Errorf("%w: points %d and %d coincide at (%g,%g)",
					ErrInvalidGeometry, i, j, pts[i].X, pts[i].Y)
			}
		}
	}

	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			for k := j + 1; k < 4; k++ {
				cross := (pts[j].X-pts[i].X)*(pts[k].Y-pts[i].Y) -
					(pts[j].Y-pts[i].Y)*(pts[k].X-pts[i].X)
				if math.Abs(cross) < collinearEps {
					return fmt.Errorf("%w: points %d, %d and %d are collinear",
						ErrInvalidGeometry, i, j, k)
				}
			}
		}
	}

	return nil
}
