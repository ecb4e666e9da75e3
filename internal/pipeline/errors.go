package pipeline

import "errors"

// Sentinel errors of the pipeline. Stage context (which rectangle, which codec
// diagnostic) is wrapped around these with fmt.Errorf so the transport layer can
// match with errors.Is and still show the details.
var (
	ErrInvalidFormat    = errors.New("unsupported image format")
	ErrDecode           = errors.New("image decode failed")
	ErrEncode           = errors.New("image encode failed")
	ErrOutOfBounds      = errors.New("rectangle exceeds image bounds")
	ErrInvalidParameter = errors.New("invalid transform parameter")
)
