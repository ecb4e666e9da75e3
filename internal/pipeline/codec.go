package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Format is a lowercase image format tag.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// DefaultJPEGQuality is used when the request carries no explicit quality.
const DefaultJPEGQuality = 80

// ParseFormat resolves a string tag to a known format. Unrecognized tags are a
// hard error, never a fallback.
func ParseFormat(tag string) (Format, error) {
	switch Format(tag) {
	case FormatJPEG, FormatPNG, FormatWebP:
		return Format(tag), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, tag)
	}
}

// Decode parses data with the codec named by format. No sniffing: the tag is
// authoritative, a mismatch surfaces as ErrDecode with the codec diagnostic.
func Decode(data []byte, format Format) (*image.NRGBA, error) {
	var (
		img image.Image
		err error
	)

	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case FormatWebP:
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, format, err)
	}

	return imaging.Clone(img), nil
}

// DecodeAny sniffs the format from the bytes themselves. Watermark sources are
// decoded this way, same as the main decoders registered via image.Decode.
func DecodeAny(data []byte) (*image.NRGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: watermark: %v", ErrDecode, err)
	}
	return imaging.Clone(img), nil
}

// Encode serializes img into the requested format.
//
// JPEG honors quality (default 80). PNG always uses maximum compression — a
// fixed policy trading encode time for size. WebP is always encoded lossless:
// quality is accepted in the request but has no effect on WebP output.
func Encode(img *image.NRGBA, format Format, quality *int) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case FormatJPEG:
		q := DefaultJPEGQuality
		if quality != nil {
			q = *quality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q})
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	case FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Lossless: true, Exact: true})
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, format, err)
	}

	return buf.Bytes(), nil
}
