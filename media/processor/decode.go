package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	apperrors "github.com/leeforge/imgpress/errors"

	// WebP decoder registration for image.Decode.
	_ "golang.org/x/image/webp"
)

var errEmptyInput = errors.New("empty input")

// sourceFormats maps the sniffed MIME type of an upload to its format.
var sourceFormats = map[string]Format{
	"image/jpeg": FormatJPEG,
	"image/png":  FormatPNG,
	"image/webp": FormatWEBP,
}

// DetectFormat sniffs the content of data. Anything other than JPEG, PNG or
// WebP is a decode error.
func DetectFormat(data []byte) (Format, error) {
	if len(data) == 0 {
		return "", apperrors.NewDecode(errEmptyInput)
	}
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if format, ok := sourceFormats[m.String()]; ok {
			return format, nil
		}
	}
	return "", apperrors.NewDecode(fmt.Errorf("unrecognized content type %s", mtype.String())).
		WithDetail("contentType", mtype.String())
}

// Decode parses data into a SourceImage.
func (p *Pipeline) Decode(data []byte) (*SourceImage, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}

	if err := p.checkDimensions(data); err != nil {
		return nil, err.WithDetail("sourceFormat", string(format))
	}

	img, err := p.decodeImage(data)
	if err != nil {
		return nil, apperrors.NewDecode(err).WithDetail("sourceFormat", string(format))
	}

	bounds := img.Bounds()
	return &SourceImage{
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Size:   len(data),
		Image:  img,
	}, nil
}

// checkDimensions reads only the image header and rejects images whose pixel
// count exceeds the configured limit before any pixel buffer is allocated.
func (p *Pipeline) checkDimensions(data []byte) *apperrors.AppError {
	cfg, err := decodeConfig(data)
	if err != nil {
		return apperrors.NewDecode(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return apperrors.NewDecode(fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	pixels := int64(cfg.Width) * int64(cfg.Height)
	if p.maxPixels > 0 && pixels > p.maxPixels {
		return apperrors.NewDecode(fmt.Errorf("image has %d pixels, limit is %d", pixels, p.maxPixels)).
			WithDetail("width", cfg.Width).
			WithDetail("height", cfg.Height).
			WithDetail("maxPixels", p.maxPixels)
	}
	return nil
}

func decodeConfig(data []byte) (cfg image.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	return cfg, err
}

// decodeImage turns a decoder panic on hostile input into an error.
func (p *Pipeline) decodeImage(data []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(p.autoOrient))
}
