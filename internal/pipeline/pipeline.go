// Package pipeline implements a single bounded image transformation: decode,
// optional crop, optional resize, optional watermark, re-encode. It is
// synchronous and stateless; every invocation owns its buffers and the first
// failing stage aborts the whole call with no partial output.
package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

// Transform runs the full pipeline over input, which must be encoded in
// req.InputFormat. Optional stages are skipped when their configuration is
// absent. On success it returns the encoded result in req.OutputFormat
// (falling back to the input format); on failure, the failing stage's error.
func Transform(input []byte, req *Request) ([]byte, error) {
	img, err := Decode(input, req.InputFormat)
	if err != nil {
		return nil, err
	}

	if req.Crop != nil {
		img, err = crop(img, *req.Crop)
		if err != nil {
			return nil, err
		}
	}

	if req.TargetSize != nil {
		img, err = Resample(img, req.TargetSize.Width, req.TargetSize.Height)
		if err != nil {
			return nil, err
		}
	}

	if req.Watermark != nil {
		img, err = Composite(img, req.Watermark)
		if err != nil {
			return nil, err
		}
	}

	out := req.OutputFormat
	if out == "" {
		out = req.InputFormat
	}

	return Encode(img, out, req.Quality)
}

// crop validates the rectangle against the image before cutting, so a failed
// crop leaves no observable mutation.
func crop(img *image.NRGBA, r Rect) (*image.NRGBA, error) {
	if err := ValidateCrop(img.Bounds().Dx(), img.Bounds().Dy(), r); err != nil {
		return nil, err
	}
	return imaging.Crop(img, image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)), nil
}
