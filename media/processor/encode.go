package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	apperrors "github.com/leeforge/imgpress/errors"
)

// Encoder serializes an image in one output format.
type Encoder interface {
	Format() Format
	// Encode writes img at quality (1-100). Lossless encoders may ignore quality.
	Encode(w io.Writer, img image.Image, quality int) error
}

// JPEGEncoder flattens any transparency onto Background, since JPEG has no
// alpha channel, then encodes at the requested quality.
type JPEGEncoder struct {
	Background color.Color
}

func (JPEGEncoder) Format() Format { return FormatJPEG }

func (e JPEGEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, Flatten(img, e.Background), imaging.JPEG, imaging.JPEGQuality(quality))
}

// PNGEncoder is lossless: quality is ignored and Level is always used.
type PNGEncoder struct {
	Level png.CompressionLevel
}

func (PNGEncoder) Format() Format { return FormatPNG }

func (e PNGEncoder) Encode(w io.Writer, img image.Image, _ int) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(e.Level))
}

// WebPEncoder produces lossy WebP at the requested quality, keeping alpha.
type WebPEncoder struct{}

func (WebPEncoder) Format() Format { return FormatWEBP }

func (WebPEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
}

// Flatten composites img over bg when img has any transparent pixel.
// Opaque images are returned unchanged.
func Flatten(img image.Image, bg color.Color) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	if bg == nil {
		bg = color.White
	}
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// Encode serializes src in format at the quality mapped from tier.
func (p *Pipeline) Encode(src *SourceImage, format Format, tier QualityTier) ([]byte, error) {
	encoder, ok := p.encoders[format]
	if !ok {
		return nil, apperrors.NewUnsupportedFormat(string(format))
	}
	quality, ok := tier.Level()
	if !ok {
		return nil, apperrors.NewValidation("unknown quality tier: " + string(tier)).
			WithDetail("quality", string(tier))
	}

	var buf bytes.Buffer
	if err := safeEncode(encoder, &buf, src.Image, quality); err != nil {
		return nil, apperrors.NewEncode(format.Extension(), err)
	}
	return buf.Bytes(), nil
}

func safeEncode(enc Encoder, w io.Writer, img image.Image, quality int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panic: %v", r)
		}
	}()
	return enc.Encode(w, img, quality)
}

// ParseCompressionLevel maps a config value to a png.CompressionLevel.
func ParseCompressionLevel(s string) (png.CompressionLevel, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	default:
		return 0, fmt.Errorf("unknown png compression %q", s)
	}
}

// ParseHexColor parses #rgb or #rrggbb into an opaque colour.
func ParseHexColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return nil, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
