package pipeline

import "image"

// Composite alpha-blends a watermark onto base and returns base, mutated in
// place. The watermark source is decoded on its own (any supported format),
// resized to the placement rectangle, then blended pixel by pixel.
//
// Effective alpha per pixel is the watermark's own alpha channel when
// UseSourceAlpha is set, otherwise that alpha scaled by the normalized opacity.
// Only the color channels are blended: the base keeps its own alpha, so the
// result is exactly as opaque as the base was.
func Composite(base *image.NRGBA, wm *Watermark) (*image.NRGBA, error) {
	overlay, err := DecodeAny(wm.Source)
	if err != nil {
		return nil, err
	}

	overlay, err = Resample(overlay, wm.Placement.Width, wm.Placement.Height)
	if err != nil {
		return nil, err
	}

	baseW := base.Bounds().Dx()
	baseH := base.Bounds().Dy()
	if err := ValidatePlacement(baseW, baseH, wm.Placement); err != nil {
		return nil, err
	}

	for wy := 0; wy < overlay.Bounds().Dy(); wy++ {
		for wx := 0; wx < overlay.Bounds().Dx(); wx++ {
			dx := wm.Placement.X + wx
			dy := wm.Placement.Y + wy
			// Placement is validated, but guard the far edge anyway.
			if dx >= baseW || dy >= baseH {
				continue
			}

			wo := overlay.PixOffset(wx, wy)
			bo := base.PixOffset(dx, dy)

			alpha := overlay.Pix[wo+3]
			if !wm.UseSourceAlpha {
				alpha = uint8(float32(alpha) * float32(wm.Opacity))
			}
			alphaF := float32(alpha) / 255.0

			for c := 0; c < 3; c++ {
				b := float32(base.Pix[bo+c])
				w := float32(overlay.Pix[wo+c])
				base.Pix[bo+c] = uint8(b*(1.0-alphaF) + w*alphaF)
			}
		}
	}

	return base, nil
}
