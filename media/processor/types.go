package processor

import (
	"image"
	"strings"

	apperrors "github.com/leeforge/imgpress/errors"
)

// Format is an output image format.
type Format string

const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatWEBP Format = "WEBP"
)

// Formats lists the supported output formats in display order.
var Formats = []Format{FormatJPEG, FormatPNG, FormatWEBP}

// ParseFormat accepts a format name in any case. "jpg" is an alias of JPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "JPEG", "JPG":
		return FormatJPEG, nil
	case "PNG":
		return FormatPNG, nil
	case "WEBP":
		return FormatWEBP, nil
	default:
		return "", apperrors.NewUnsupportedFormat(s)
	}
}

// UnmarshalForm implements binding.FormUnmarshaler.
func (f *Format) UnmarshalForm(value string) error {
	parsed, err := ParseFormat(value)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// UnmarshalText lets viper and JSON decode formats case-insensitively.
func (f *Format) UnmarshalText(text []byte) error {
	return f.UnmarshalForm(string(text))
}

// Extension returns the lowercase file extension without the dot.
func (f Format) Extension() string {
	return strings.ToLower(string(f))
}

// MIMEType returns image/{format}.
func (f Format) MIMEType() string {
	return "image/" + f.Extension()
}

// QualityTier is the user-facing quality label.
type QualityTier string

const (
	QualityPoor   QualityTier = "Poor"
	QualityLow    QualityTier = "Low"
	QualityMedium QualityTier = "Medium"
	QualityGood   QualityTier = "Good"
	QualityHigh   QualityTier = "High"
)

// QualityTiers lists the tiers from lowest to highest.
var QualityTiers = []QualityTier{QualityPoor, QualityLow, QualityMedium, QualityGood, QualityHigh}

// QualityMap maps a tier to the numeric encoder quality.
var QualityMap = map[QualityTier]int{
	QualityPoor:   10,
	QualityLow:    30,
	QualityMedium: 60,
	QualityGood:   80,
	QualityHigh:   95,
}

// ParseQualityTier matches a tier name case-insensitively.
func ParseQualityTier(s string) (QualityTier, error) {
	trimmed := strings.TrimSpace(s)
	for _, tier := range QualityTiers {
		if strings.EqualFold(trimmed, string(tier)) {
			return tier, nil
		}
	}
	return "", apperrors.NewValidation("unknown quality tier: " + s).WithDetail("quality", s)
}

// UnmarshalForm implements binding.FormUnmarshaler.
func (q *QualityTier) UnmarshalForm(value string) error {
	parsed, err := ParseQualityTier(value)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// UnmarshalText lets viper and JSON decode tiers case-insensitively.
func (q *QualityTier) UnmarshalText(text []byte) error {
	return q.UnmarshalForm(string(text))
}

// Level returns the encoder quality for the tier.
func (q QualityTier) Level() (int, bool) {
	level, ok := QualityMap[q]
	return level, ok
}

// Input is one uploaded file.
type Input struct {
	Name string
	Data []byte
}

// SourceImage is a decoded image. It is never mutated; Resize returns a new one.
type SourceImage struct {
	Format Format
	Width  int
	Height int
	Size   int
	Image  image.Image
}

// Result is the output of a single transform.
type Result struct {
	Filename       string `json:"filename"`
	MIMEType       string `json:"mimeType"`
	SourceFormat   Format `json:"sourceFormat"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalSize   int    `json:"originalSize"`
	CompressedSize int    `json:"compressedSize"`
	Data           []byte `json:"-"`
}

// Ratio returns the size reduction in percent. Negative when the output grew.
func (r *Result) Ratio() float64 {
	return ratio(int64(r.OriginalSize), int64(r.CompressedSize))
}

// BatchResult holds the ordered outputs of a batch.
type BatchResult struct {
	Items           []*Result
	OriginalBytes   int64
	CompressedBytes int64
}

// Len returns the number of items.
func (b *BatchResult) Len() int {
	return len(b.Items)
}

// Ratio returns the aggregate size reduction in percent.
func (b *BatchResult) Ratio() float64 {
	return ratio(b.OriginalBytes, b.CompressedBytes)
}

func ratio(original, compressed int64) float64 {
	if original == 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(original)) * 100
}
