package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxEdge  = 600
	InlineQuality   = 50
	FallbackQuality = 30
)

// InlineEncoder turns an uploaded photo into a compact JPEG data URL.
type InlineEncoder struct {
	MaxEdge int
}

// NewInlineEncoder returns an encoder bounded to DefaultMaxEdge.
func NewInlineEncoder() InlineEncoder {
	return InlineEncoder{MaxEdge: DefaultMaxEdge}
}

// Prepare decodes data and downscales it so neither edge exceeds MaxEdge.
func (e InlineEncoder) Prepare(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return Downscale(img, e.maxEdge()), nil
}

// Encode is Prepare followed by EncodeJPEGDataURL.
func (e InlineEncoder) Encode(data []byte, quality int) (string, error) {
	img, err := e.Prepare(data)
	if err != nil {
		return "", err
	}
	return EncodeJPEGDataURL(img, quality)
}

func (e InlineEncoder) maxEdge() int {
	if e.MaxEdge <= 0 {
		return DefaultMaxEdge
	}
	return e.MaxEdge
}

// Downscale keeps the aspect ratio and returns img unchanged when it already fits.
func Downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	if w >= h {
		h = max(1, h*maxEdge/w)
		w = maxEdge
	} else {
		w = max(1, w*maxEdge/h)
		h = maxEdge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEGDataURL encodes img as a data:image/jpeg;base64 URL.
func EncodeJPEGDataURL(img image.Image, quality int) (string, error) {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return "", err
	}
	return EncodeDataURL("image/jpeg", data), nil
}
