package pipeline

import "fmt"

// Rect is a placement or crop rectangle in pixel units.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Size is a resize target in pixels.
type Size struct {
	Width  int
	Height int
}

// Watermark describes an overlay image: its own encoded bytes, where to put it
// on the base image, and how to blend it. Opacity is already normalized to
// [0,1] — construct through NewWatermark, which validates the percentage.
type Watermark struct {
	Source         []byte
	Placement      Rect
	Opacity        float64
	UseSourceAlpha bool
}

// NewWatermark builds a Watermark from a caller-supplied opacity percentage in
// [0,100]. Out-of-range percentages fail here, before any bytes are decoded.
func NewWatermark(source []byte, placement Rect, opacityPercent float64, useSourceAlpha bool) (*Watermark, error) {
	if opacityPercent < 0 || opacityPercent > 100 {
		return nil, fmt.Errorf("%w: watermark opacity %v is outside [0, 100]", ErrInvalidParameter, opacityPercent)
	}

	return &Watermark{
		Source:         source,
		Placement:      placement,
		Opacity:        opacityPercent / 100.0,
		UseSourceAlpha: useSourceAlpha,
	}, nil
}

// Request is a single transform invocation. It is constructed once by the
// boundary layer, read by Transform and discarded; nil optional fields skip
// their stage entirely.
type Request struct {
	InputFormat  Format
	Crop         *Rect
	TargetSize   *Size
	Watermark    *Watermark
	OutputFormat Format // empty: reuse InputFormat
	Quality      *int   // nil: codec default, lossy formats only
}
