package processor

import (
	"context"

	apperrors "github.com/leeforge/imgpress/errors"
)

// Info describes an upload and what the current settings would make of it.
type Info struct {
	Name           string      `json:"name"`
	SourceFormat   Format      `json:"sourceFormat"`
	Width          int         `json:"width"`
	Height         int         `json:"height"`
	OriginalSize   int         `json:"originalSize"`
	OutputFormat   Format      `json:"outputFormat"`
	Quality        QualityTier `json:"quality"`
	QualityLevel   int         `json:"qualityLevel"`
	Scale          int         `json:"scale"`
	OutputWidth    int         `json:"outputWidth"`
	OutputHeight   int         `json:"outputHeight"`
	OutputName     string      `json:"outputName"`
	CompressedSize int         `json:"compressedSize"`
	Ratio          float64     `json:"ratio"`
}

// Inspect decodes once, resizes and encodes, and reports dimensions and sizes
// without returning the encoded bytes. Previews are not reported to the
// observer.
func (p *Pipeline) Inspect(ctx context.Context, in Input, settings Settings) (*Info, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := p.Decode(in.Data)
	if err != nil {
		return nil, err
	}
	res, err := p.render(in.Name, src, settings, OutputName(resolveBaseName(settings.BaseName, in.Name), settings.Format))
	if err != nil {
		return nil, err
	}
	level, _ := settings.Quality.Level()

	return &Info{
		Name:           in.Name,
		SourceFormat:   src.Format,
		Width:          src.Width,
		Height:         src.Height,
		OriginalSize:   len(in.Data),
		OutputFormat:   settings.Format,
		Quality:        settings.Quality,
		QualityLevel:   level,
		Scale:          settings.Scale,
		OutputWidth:    res.Width,
		OutputHeight:   res.Height,
		OutputName:     res.Filename,
		CompressedSize: res.CompressedSize,
		Ratio:          res.Ratio(),
	}, nil
}

// Navigation is a carousel position over Total uploads.
type Navigation struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// NewNavigation validates index against total.
func NewNavigation(index, total int) (Navigation, error) {
	if total < 1 {
		return Navigation{}, apperrors.NewValidation("no images uploaded")
	}
	if index < 0 || index >= total {
		return Navigation{}, apperrors.NewValidation("image index out of range").
			WithDetail("index", index).
			WithDetail("total", total)
	}
	return Navigation{Index: index, Total: total}, nil
}

func (n Navigation) HasPrev() bool { return n.Index > 0 }
func (n Navigation) HasNext() bool { return n.Index < n.Total-1 }

// Prev moves one image back, staying on the first image.
func (n Navigation) Prev() Navigation {
	if n.HasPrev() {
		n.Index--
	}
	return n
}

// Next moves one image forward, staying on the last image.
func (n Navigation) Next() Navigation {
	if n.HasNext() {
		n.Index++
	}
	return n
}
