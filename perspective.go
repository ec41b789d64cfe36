package digistrip

// Projective transform functionality.

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateTransform is returned when a quadrilateral does not admit a
// non-singular homography (zero or near-zero area).
var ErrDegenerateTransform = errors.New("degenerate perspective transform")

// perspectiveTransform is a 3x3 projective transform between planes. A point
// (x, y) maps to ((a11*x+a21*y+a31)/d, (a12*x+a22*y+a32)/d) with
// d = a13*x+a23*y+a33.
type perspectiveTransform struct {
	a11, a12, a13 float64
	a21, a22, a23 float64
	a31, a32, a33 float64
}

// squareToQuad computes the transform mapping the unit square onto q.
func squareToQuad(q Quad) (*perspectiveTransform, error) {
	x0, y0 := q[0].X, q[0].Y
	x1, y1 := q[1].X, q[1].Y
	x2, y2 := q[2].X, q[2].Y
	x3, y3 := q[3].X, q[3].Y

	dx3 := x0 - x1 + x2 - x3
	dy3 := y0 - y1 + y2 - y3
	if dx3 == 0 && dy3 == 0 {
		// Affine case.
		return &perspectiveTransform{
			a11: x1 - x0, a21: x2 - x1, a31: x0,
			a12: y1 - y0, a22: y2 - y1, a32: y0,
			a13: 0, a23: 0, a33: 1,
		}, nil
	}

	dx1 := x1 - x2
	dx2 := x3 - x2
	dy1 := y1 - y2
	dy2 := y3 - y2
	denominator := dx1*dy2 - dx2*dy1
	if math.Abs(denominator) < 1e-12 {
		return nil, fmt.Errorf("%w: quadrilateral %v", ErrDegenerateTransform, q)
	}

	a13 := (dx3*dy2 - dx2*dy3) / denominator
	a23 := (dx1*dy3 - dx3*dy1) / denominator
	return &perspectiveTransform{
		a11: x1 - x0 + a13*x1, a21: x3 - x0 + a23*x3, a31: x0,
		a12: y1 - y0 + a13*y1, a22: y3 - y0 + a23*y3, a32: y0,
		a13: a13, a23: a23, a33: 1,
	}, nil
}

// quadToSquare computes the transform mapping q onto the unit square.
func quadToSquare(q Quad) (*perspectiveTransform, error) {
	t, err := squareToQuad(q)
	if err != nil {
		return nil, err
	}
	return t.adjoint(), nil
}

// quadToQuad computes the transform mapping the corners of from onto the
// corresponding corners of to.
func quadToQuad(from, to Quad) (*perspectiveTransform, error) {
	qs, err := quadToSquare(from)
	if err != nil {
		return nil, err
	}
	sq, err := squareToQuad(to)
	if err != nil {
		return nil, err
	}

	t := sq.times(qs)
	if t.isSingular() {
		return nil, fmt.Errorf("%w: mapping %v to %v", ErrDegenerateTransform, from, to)
	}
	return t, nil
}

// apply maps a single point through the transform.
func (t *perspectiveTransform) apply(x, y float64) (float64, float64) {
	denominator := t.a13*x + t.a23*y + t.a33
	return (t.a11*x + t.a21*y + t.a31) / denominator,
		(t.a12*x + t.a22*y + t.a32) / denominator
}

// adjoint returns the transpose of the cofactor matrix. For a homography the
// adjoint acts as the inverse because the projective scale factor cancels.
func (t *perspectiveTransform) adjoint() *perspectiveTransform {
	return &perspectiveTransform{
		a11: t.a22*t.a33 - t.a23*t.a32,
		a21: t.a23*t.a31 - t.a21*t.a33,
		a31: t.a21*t.a32 - t.a22*t.a31,
		a12: t.a13*t.a32 - t.a12*t.a33,
		a22: t.a11*t.a33 - t.a13*t.a31,
		a32: t.a12*t.a31 - t.a11*t.a32,
		a13: t.a12*t.a23 - t.a13*t.a22,
		a23: t.a13*t.a21 - t.a11*t.a23,
		a33: t.a11*t.a22 - t.a12*t.a21,
	}
}

// times returns the composition t * other (other applied first).
func (t *perspectiveTransform) times(other *perspectiveTransform) *perspectiveTransform {
	return &perspectiveTransform{
		a11: t.a11*other.a11 + t.a21*other.a12 + t.a31*other.a13,
		a21: t.a11*other.a21 + t.a21*other.a22 + t.a31*other.a23,
		a31: t.a11*other.a31 + t.a21*other.a32 + t.a31*other.a33,
		a12: t.a12*other.a11 + t.a22*other.a12 + t.a32*other.a13,
		a22: t.a12*other.a21 + t.a22*other.a22 + t.a32*other.a23,
		a32: t.a12*other.a31 + t.a22*other.a32 + t.a32*other.a33,
		a13: t.a13*other.a11 + t.a23*other.a12 + t.a33*other.a13,
		a23: t.a13*other.a21 + t.a23*other.a22 + t.a33*other.a23,
		a33: t.a13*other.a31 + t.a23*other.a32 + t.a33*other.a33,
	}
}

// isSingular reports whether the transform collapses the plane. The
// determinant is compared against a threshold scaled by the matrix magnitude
// so the test is independent of coordinate units.
func (t *perspectiveTransform) isSingular() bool {
	det := t.a11*(t.a22*t.a33-t.a23*t.a32) -
		t.a21*(t.a12*t.a33-t.a13*t.a32) +
		t.a31*(t.a12*t.a23-t.a13*t.a22)

	m := 0.0
	for _, v := range []float64{t.a11, t.a12, t.a13, t.a21, t.a22, t.a23, t.a31, t.a32, t.a33} {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	if m < 1 {
		m = 1
	}
	return math.Abs(det) < 1e-12*m*m*m
}
