package processor

import (
	"fmt"

	validatorV10 "github.com/go-playground/validator/v10"
	apperrors "github.com/leeforge/imgpress/errors"
)

var validate = validatorV10.New()

// Settings is the per-request transform configuration.
type Settings struct {
	BaseName string      `form:"name" json:"name" validate:"max=200"`
	Format   Format      `form:"format" json:"format" validate:"required,oneof=JPEG PNG WEBP"`
	Quality  QualityTier `form:"quality" json:"quality" validate:"required,oneof=Poor Low Medium Good High"`
	Scale    int         `form:"scale" json:"scale" validate:"required,min=1,max=100"`
}

// Validate checks ranges and enums. A failure is a validation AppError whose
// details map each offending field to its tag.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	appErr := apperrors.NewValidation("invalid transform settings").WithInnerError(err)
	if fieldErrs, ok := err.(validatorV10.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			appErr.WithDetail(fe.Field(), fmt.Sprintf("failed %q (%v)", fe.Tag(), fe.Value()))
		}
	}
	return appErr
}

// Config holds the pipeline settings loaded from the config file.
type Config struct {
	// Resampler selects the resize implementation: lanczos (nfnt/resize) or imaging.
	Resampler string `mapstructure:"resampler" json:"resampler" yaml:"resampler" default:"lanczos" validate:"oneof=lanczos imaging"`
	// Workers bounds batch fan-out. 1 processes sequentially.
	Workers int `mapstructure:"workers" json:"workers" yaml:"workers" default:"1" validate:"min=1,max=64"`
	// IgnoreEXIF disables orientation correction on decode.
	IgnoreEXIF bool `mapstructure:"ignore-exif" json:"ignoreExif" yaml:"ignore-exif"`
	// MaxPixels rejects uploads whose header declares more than width*height
	// pixels. 0 uses DefaultMaxPixels.
	MaxPixels int64 `mapstructure:"max-pixels" json:"maxPixels" yaml:"max-pixels" default:"178956970" validate:"min=0"`
	// JPEGBackground is the colour transparent pixels are flattened onto for JPEG.
	JPEGBackground string `mapstructure:"jpeg-background" json:"jpegBackground" yaml:"jpeg-background" default:"#ffffff"`
	// PNGCompression is one of default, none, speed, best.
	PNGCompression string `mapstructure:"png-compression" json:"pngCompression" yaml:"png-compression" default:"best" validate:"oneof=default none speed best"`

	DefaultFormat  string `mapstructure:"default-format" json:"defaultFormat" yaml:"default-format" default:"JPEG"`
	DefaultQuality string `mapstructure:"default-quality" json:"defaultQuality" yaml:"default-quality" default:"Medium"`
	DefaultScale   int    `mapstructure:"default-scale" json:"defaultScale" yaml:"default-scale" default:"100" validate:"min=1,max=100"`
}

// DefaultSettings builds the Settings used when a request leaves fields empty.
func (c Config) DefaultSettings() (Settings, error) {
	format, err := ParseFormat(c.DefaultFormat)
	if err != nil {
		return Settings{}, err
	}
	quality, err := ParseQualityTier(c.DefaultQuality)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{Format: format, Quality: quality, Scale: c.DefaultScale}
	return s, s.Validate()
}
