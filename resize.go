package digistrip

// Downscaling functionality.

import (
	"image"

	"github.com/disintegration/imaging"
)

// Downscale resamples the high-resolution binary strip to the final
// FinalWidth x FinalHeight size using box (area-averaging) filtering, so
// fine binary edges anti-alias instead of dropping strokes at the roughly
// 1/3.6 scale.
//
// Averaging reintroduces intermediate gray levels along edges; the result is
// deliberately not re-binarized.
func Downscale(bin *image.Gray) *image.Gray {
	resized := imaging.Resize(bin, FinalWidth, FinalHeight, imaging.Box)
	return toGray(resized)
}
