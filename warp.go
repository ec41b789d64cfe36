package digistrip

// Perspective rectification functionality.

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Rectify maps the quadrilateral region q of src onto a fresh
// HiResWidth x HiResHeight image, removing the perspective distortion.
//
// Every destination pixel is inverse-mapped through the homography and
// sampled bilinearly from the source; samples falling outside the source
// bounds read as black.
//
// Returns ErrDegenerateTransform if q does not admit a non-singular
// homography.
func Rectify(src image.Image, q Quad) (*image.NRGBA, error) {
	dst := Quad{
		{0, 0},
		{HiResWidth - 1, 0},
		{HiResWidth - 1, HiResHeight - 1},
		{0, HiResHeight - 1},
	}
	t, err := quadToQuad(dst, q)
	if err != nil {
		return nil, err
	}

	// Clone normalizes the source to NRGBA with bounds at the origin, which
	// makes the sampling loop independent of the decoded pixel format.
	in := imaging.Clone(src)
	out := image.NewNRGBA(image.Rect(0, 0, HiResWidth, HiResHeight))

	for y := 0; y < HiResHeight; y++ {
		for x := 0; x < HiResWidth; x++ {
			sx, sy := t.apply(float64(x), float64(y))
			r, g, b := sampleBilinear(in, sx, sy)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = 0xff
		}
	}

	return out, nil
}

// sampleBilinear reads the source at a fractional position, blending the
// four surrounding pixels. Neighbours outside the image contribute black.
func sampleBilinear(img *image.NRGBA, x, y float64) (r, g, b uint8) {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	w := img.Rect.Dx()
	h := img.Rect.Dy()

	var sr, sg, sb float64
	for dy := 0; dy <= 1; dy++ {
		for dx := 0; dx <= 1; dx++ {
			px, py := x0+dx, y0+dy
			if px < 0 || px >= w || py < 0 || py >= h {
				continue
			}
			weight := (1 - math.Abs(float64(dx)-fx)) * (1 - math.Abs(float64(dy)-fy))
			i := img.PixOffset(px, py)
			sr += weight * float64(img.Pix[i+0])
			sg += weight * float64(img.Pix[i+1])
			sb += weight * float64(img.Pix[i+2])
		}
	}

	return uint8(sr + 0.5), uint8(sg + 0.5), uint8(sb + 0.5)
}
