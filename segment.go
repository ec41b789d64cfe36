package digistrip

// Strip segmentation functionality.

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// ErrDimensionMismatch is returned when an image handed to a pipeline stage
// does not have the size the stage contract requires. It indicates a
// programming error in the caller, not bad user input.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Segment splits the final strip into NumSegments fresh
// SegmentSize x SegmentSize cells, left to right. The crops are contiguous
// and non-overlapping and together tile the full strip width.
//
// The strip must be exactly FinalWidth x FinalHeight; anything else returns
// ErrDimensionMismatch.
func Segment(strip *image.Gray) ([NumSegments]*image.Gray, error) {
	var segments [NumSegments]*image.Gray

	b := strip.Bounds()
	if b.Dx() != NumSegments*SegmentSize || b.Dy() != SegmentSize {
		return segments, fmt.Errorf("%w: strip is %dx%d, want %dx%d",
			ErrDimensionMismatch, b.Dx(), b.Dy(), NumSegments*SegmentSize, SegmentSize)
	}

	for i := range segments {
		r := image.Rect(b.Min.X+i*SegmentSize, b.Min.Y,
			b.Min.X+(i+1)*SegmentSize, b.Min.Y+SegmentSize)
		seg := image.NewGray(image.Rect(0, 0, SegmentSize, SegmentSize))
		draw.Draw(seg, seg.Bounds(), strip.SubImage(r), r.Min, draw.Src)
		segments[i] = seg
	}

	return segments, nil
}
