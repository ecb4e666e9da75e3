// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/glebkin/imgpipe/internal/pipeline"
	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

//---------------------

// TransformParams is the loosely-typed transform configuration as it arrives
// from the client (the "config" form field). Pointer fields distinguish
// "absent" from zero: geometry fields are never defaulted implicitly — the
// boundary in service.buildRequest rejects partial crop/size/watermark objects
// instead of quietly producing zero-area rectangles.
type TransformParams struct {
	Format       string           `json:"format"`
	Crop         *CropParams      `json:"crop,omitempty"`
	Size         *SizeParams      `json:"size,omitempty"`
	Watermark    *WatermarkParams `json:"watermark,omitempty"`
	OutputFormat string           `json:"output_format,omitempty"`
	Quality      *int             `json:"quality,omitempty"`
}

type CropParams struct {
	X      *int `json:"x"`
	Y      *int `json:"y"`
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

type SizeParams struct {
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

// WatermarkParams carries placement as [x, y, width, height] and opacity as a
// percentage in [0,100]. Missing opacity means fully opaque.
type WatermarkParams struct {
	Position          []int    `json:"position"`
	Opacity           *float64 `json:"opacity,omitempty"`
	UseWatermarkAlpha bool     `json:"use_watermark_alpha,omitempty"`
}

//-------------------

type Job struct {
	UID          uuid.UUID       `json:"uid"`
	SourceKey    string          `json:"-"`
	WatermarkKey string          `json:"-"`
	ResultKey    string          `json:"-"`
	Params       TransformParams `json:"params"`
	Status       Status          `json:"status,omitempty"`
	ErrMsg       StringSlice     `json:"error,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

type JobCreateData struct {
	RawParams string // config form-field, JSON
	Params    *TransformParams
	SrcImg    multipart.File
	SrcSize   int64
	WMImg     multipart.File
	WMSize    int64
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// ------------------

var (
	ErrCommon500      error = errors.New("something went wrong. Try again later")     // 500
	ErrIncorrectQuery error = errors.New("incorrect query parameters")                // 400
	ErrIncorrectID    error = errors.New("incorrect job UUID")                        // 400
	ErrJobNotFound    error = errors.New("specified job UUID doesn't exist")          // 404
	ErrResultNotReady error = errors.New("requested job is not processed yet")        // 404
	ErrEmptySource    error = errors.New("empty/incorrect source image provided")     // 400
	ErrEmptyWMark     error = errors.New("watermark requested but no image provided") // 400
	ErrBadConfig      error = errors.New("missing or malformed transform config")     // 400
	ErrIncorrectState error = errors.New("incorrect job status provided")             // 400
	ErrJobFailed      error = errors.New("job processing failed, no result exists")   // 404
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	WEBP = "image/webp"
)

var GetImageFileExt = map[pipeline.Format]string{
	pipeline.FormatJPEG: ".jpg",
	pipeline.FormatPNG:  ".png",
	pipeline.FormatWebP: ".webp",
}

var GetCType = map[pipeline.Format]string{
	pipeline.FormatJPEG: JPEG,
	pipeline.FormatPNG:  PNG,
	pipeline.FormatWebP: WEBP,
}

//--------------------

// Scan/Value make TransformParams storable as a JSONB column.

func (p *TransformParams) Scan(value any) error {
	if value == nil {
		*p = TransformParams{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for TransformParams")
	}

	if err := json.Unmarshal(b, p); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to TransformParams: %w", err)
	}
	return nil
}

func (p TransformParams) Value() (driver.Value, error) {
	res, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TransformParams to JSONB: %w", err)
	}

	return res, nil
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}
