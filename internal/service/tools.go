package service

import (
	"fmt"
	"strings"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/pipeline"
)

// buildRequest is the single place where the loosely-typed client config
// becomes a fully-typed pipeline.Request. Required-vs-optional is explicit
// here: a crop/size/watermark object missing one of its geometry fields is
// rejected instead of silently defaulting to zero and producing a zero-area
// rectangle.
func buildRequest(p *model.TransformParams, wm []byte) (*pipeline.Request, error) {
	if p == nil || p.Format == "" {
		return nil, fmt.Errorf("%w: format is required", model.ErrBadConfig)
	}

	inFormat, err := pipeline.ParseFormat(p.Format)
	if err != nil {
		return nil, err
	}

	req := &pipeline.Request{
		InputFormat: inFormat,
		Quality:     p.Quality,
	}

	if p.OutputFormat != "" {
		outFormat, err := pipeline.ParseFormat(p.OutputFormat)
		if err != nil {
			return nil, err
		}
		req.OutputFormat = outFormat
	}

	if p.Crop != nil {
		rect, err := rectFromFields("crop", p.Crop.X, p.Crop.Y, p.Crop.Width, p.Crop.Height)
		if err != nil {
			return nil, err
		}
		req.Crop = rect
	}

	if p.Size != nil {
		if p.Size.Width == nil || p.Size.Height == nil {
			return nil, fmt.Errorf("%w: size requires both width and height", model.ErrBadConfig)
		}
		req.TargetSize = &pipeline.Size{Width: *p.Size.Width, Height: *p.Size.Height}
	}

	if p.Watermark != nil {
		if len(p.Watermark.Position) != 4 {
			return nil, fmt.Errorf("%w: watermark position must be [x, y, width, height]", model.ErrBadConfig)
		}
		placement := pipeline.Rect{
			X:      p.Watermark.Position[0],
			Y:      p.Watermark.Position[1],
			Width:  p.Watermark.Position[2],
			Height: p.Watermark.Position[3],
		}

		opacity := 100.0
		if p.Watermark.Opacity != nil {
			opacity = *p.Watermark.Opacity
		}

		watermark, err := pipeline.NewWatermark(wm, placement, opacity, p.Watermark.UseWatermarkAlpha)
		if err != nil {
			return nil, err
		}
		req.Watermark = watermark
	}

	return req, nil
}

func rectFromFields(name string, x, y, w, h *int) (*pipeline.Rect, error) {
	if x == nil || y == nil || w == nil || h == nil {
		return nil, fmt.Errorf("%w: %s requires x, y, width and height", model.ErrBadConfig, name)
	}
	return &pipeline.Rect{X: *x, Y: *y, Width: *w, Height: *h}, nil
}

// validateJobData checks the upload itself; geometric/range validation lives
// in buildRequest and the pipeline.
func validateJobData(raw *model.JobCreateData, clean *model.Job) error {
	if raw.Params == nil {
		return model.ErrBadConfig
	}

	// run the full boundary validation now so a bad config never reaches the
	// queue; watermark bytes are attached later by the worker
	if _, err := buildRequest(raw.Params, nil); err != nil {
		return err
	}

	if raw.SrcImg == nil || raw.SrcSize <= 0 {
		return model.ErrEmptySource
	}

	if raw.Params.Watermark != nil && (raw.WMImg == nil || raw.WMSize <= 0) {
		return model.ErrEmptyWMark
	}

	clean.Params = *raw.Params

	return nil
}

func validateQueryParams(req *model.ListRequest) {
	// fill in defaults for empty values
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}
	if req.Sort == "" {
		req.Sort = model.ByCreated
	}
	if req.Order == "" {
		req.Order = model.OrderDESC
	}

	// normalize sort column
	req.Sort = strings.ToLower(req.Sort)
	req.Sort = strings.TrimSpace(req.Sort)
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "uid"
	case strings.Contains(req.Sort, model.ByCreated):
		req.Sort = "created_at"
	default:
		req.Sort = "created_at" // newest-first is the sane default
	}

	// normalize sort order
	req.Order = strings.ToLower(req.Order)
	req.Order = strings.TrimSpace(req.Order)
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	case strings.Contains(req.Order, model.OrderDESC):
		req.Order = "DESC"
	default:
		req.Order = "DESC"
	}
}
