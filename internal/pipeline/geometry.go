package pipeline

import "fmt"

// validateRect checks that r lies fully inside an imgW×imgH image. The bounds
// comparison is written in subtraction form so that x+width can never wrap,
// whatever the inputs. kind names the rectangle (crop or watermark) in errors.
func validateRect(kind string, imgW, imgH int, r Rect) error {
	if r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("%w: %s rectangle has negative component: %+v", ErrInvalidParameter, kind, r)
	}
	if r.X > imgW || r.Width > imgW-r.X || r.Y > imgH || r.Height > imgH-r.Y {
		return fmt.Errorf("%w: %s %dx%d at (%d,%d) does not fit image %dx%d",
			ErrOutOfBounds, kind, r.Width, r.Height, r.X, r.Y, imgW, imgH)
	}
	return nil
}

// ValidateCrop checks a crop rectangle against the image dimensions.
func ValidateCrop(imgW, imgH int, r Rect) error {
	return validateRect("crop", imgW, imgH, r)
}

// ValidatePlacement checks a watermark placement rectangle against the base
// image dimensions.
func ValidatePlacement(imgW, imgH int, r Rect) error {
	return validateRect("watermark", imgW, imgH, r)
}
