package pipeline

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Resample scales img to exactly width×height pixels using Lanczos (radius 3).
// The filter is a fixed policy: the same kernel is used for the main image and
// for watermarks, with no per-call selection.
//
// A zero or negative target dimension is an error rather than an empty buffer,
// same as geometry fields elsewhere: silently producing a zero-area image hides
// caller mistakes.
func Resample(img *image.NRGBA, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: resize target %dx%d must be positive", ErrInvalidParameter, width, height)
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}
