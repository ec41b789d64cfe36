package digistrip

// The extraction pipeline: order corners, rectify, binarize, downscale and
// segment a user-marked quadrilateral region of a photograph.

import "image"

// Canonical pipeline dimensions.
const (
	// HiResWidth and HiResHeight are the size of the rectified working
	// buffer. The 5:1 ratio matches the five-character strips.
	HiResWidth  = 500
	HiResHeight = 100

	// FinalWidth and FinalHeight are the size of the finished strip.
	FinalWidth  = 140
	FinalHeight = 28

	// SegmentSize is the edge length of one output cell; NumSegments cells
	// of this width tile the final strip.
	SegmentSize = 28
	NumSegments = 5

	// ThresholdBlockSize and ThresholdBias parameterise the adaptive
	// threshold; MedianKernelSize the noise filter. The block size is a
	// fixed tunable: it does not scale with the strip length.
	ThresholdBlockSize = 11
	ThresholdBias      = 2
	MedianKernelSize   = 3
)

// Result is the output of one extraction: the finished strip, kept for
// preview rendering, and its five cells in left-to-right order. Segment i
// corresponds to character i of the label chosen by the caller.
type Result struct {
	Strip    *image.Gray
	Segments [NumSegments]*image.Gray
}

// Pipeline bundles the extraction stages. The zero value uses the canonical
// behaviour; Order may be swapped for an alternative corner policy.
type Pipeline struct {
	// Order canonicalizes the user-supplied corner points. Nil means
	// OrderPoints.
	Order OrderFunc
}

// Extract runs the full pipeline on the marked region of img.
//
// The stages are pure value-in/value-out with no shared state, so Extract
// may be called from any goroutine, typically a worker that keeps an
// interactive front end responsive. There is no cancellation: a call runs to
// completion or error.
//
// The region is captured blind: whatever lies within the four points ends up
// in the output, shadows and background included.
func (p *Pipeline) Extract(img image.Image, pts [4]Point) (*Result, error) {
	order := p.Order
	if order == nil {
		order = OrderPoints
	}

	quad, err := order(pts)
	if err != nil {
		return nil, err
	}

	warped, err := Rectify(img, quad)
	if err != nil {
		return nil, err
	}

	strip := Downscale(Binarize(warped))

	segments, err := Segment(strip)
	if err != nil {
		return nil, err
	}

	return &Result{Strip: strip, Segments: segments}, nil
}

// Extract runs the pipeline with the default corner ordering.
func Extract(img image.Image, pts [4]Point) (*Result, error) {
	var p Pipeline
	return p.Extract(img, pts)
}
