package processor

import (
	"testing"

	apperrors "github.com/leeforge/imgpress/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityMap(t *testing.T) {
	want := map[QualityTier]int{
		QualityPoor:   10,
		QualityLow:    30,
		QualityMedium: 60,
		QualityGood:   80,
		QualityHigh:   95,
	}
	assert.Equal(t, want, QualityMap)

	for tier, level := range want {
		got, ok := tier.Level()
		assert.True(t, ok)
		assert.Equal(t, level, got)
	}
	_, ok := QualityTier("Extreme").Level()
	assert.False(t, ok)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"JPEG", FormatJPEG},
		{"jpg", FormatJPEG},
		{" png ", FormatPNG},
		{"WebP", FormatWEBP},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("tiff")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnsupportedFormat))

	var f Format
	require.NoError(t, f.UnmarshalText([]byte("webp")))
	assert.Equal(t, FormatWEBP, f)
	assert.Equal(t, "webp", f.Extension())
	assert.Equal(t, "image/jpeg", FormatJPEG.MIMEType())
}

func TestParseQualityTier(t *testing.T) {
	got, err := ParseQualityTier("medium")
	require.NoError(t, err)
	assert.Equal(t, QualityMedium, got)

	_, err = ParseQualityTier("superb")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestRatio(t *testing.T) {
	r := &Result{OriginalSize: 1000, CompressedSize: 250}
	assert.InDelta(t, 75.0, r.Ratio(), 0.0001)

	grew := &Result{OriginalSize: 100, CompressedSize: 150}
	assert.InDelta(t, -50.0, grew.Ratio(), 0.0001)

	assert.Zero(t, (&BatchResult{}).Ratio())
	assert.InDelta(t, 50.0, (&BatchResult{OriginalBytes: 10, CompressedBytes: 5}).Ratio(), 0.0001)
}

func TestSettingsValidate(t *testing.T) {
	ok := Settings{Format: FormatPNG, Quality: QualityLow, Scale: 1}
	assert.NoError(t, ok.Validate())

	bad := Settings{Format: FormatPNG, Quality: QualityLow, Scale: 150}
	err := bad.Validate()
	require.Error(t, err)

	appErr := apperrors.FromError(err)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Contains(t, appErr.Details, "Scale")
}

func TestConfigDefaultSettings(t *testing.T) {
	cfg := Config{DefaultFormat: "webp", DefaultQuality: "good", DefaultScale: 75}
	s, err := cfg.DefaultSettings()
	require.NoError(t, err)
	assert.Equal(t, Settings{Format: FormatWEBP, Quality: QualityGood, Scale: 75}, s)

	_, err = Config{DefaultFormat: "gif", DefaultQuality: "good", DefaultScale: 75}.DefaultSettings()
	assert.Error(t, err)
}

func TestNavigation(t *testing.T) {
	nav, err := NewNavigation(0, 3)
	require.NoError(t, err)
	assert.False(t, nav.HasPrev())
	assert.True(t, nav.HasNext())
	assert.Equal(t, 0, nav.Prev().Index)

	nav = nav.Next().Next()
	assert.Equal(t, 2, nav.Index)
	assert.False(t, nav.HasNext())
	assert.Equal(t, 2, nav.Next().Index)
	assert.Equal(t, 1, nav.Prev().Index)

	_, err = NewNavigation(3, 3)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	_, err = NewNavigation(0, 0)
	assert.Error(t, err)
}
