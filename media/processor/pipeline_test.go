package processor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/klauspost/compress/zip"
	apperrors "github.com/leeforge/imgpress/errors"
	"github.com/leeforge/imgpress/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settings(format Format, quality QualityTier, scale int) Settings {
	return Settings{BaseName: "out", Format: format, Quality: quality, Scale: scale}
}

func sourceOf(img image.Image) *SourceImage {
	b := img.Bounds()
	return &SourceImage{Format: FormatPNG, Width: b.Dx(), Height: b.Dy(), Image: img}
}

func TestResize_IdentityAtFullScale(t *testing.T) {
	p := New()
	src := sourceOf(testkit.Gradient(37, 21))

	out, err := p.Resize(src, 100)
	require.NoError(t, err)
	assert.Same(t, src, out)
}

func TestResize_FloorsEachAxis(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		scale         int
		wantW, wantH  int
	}{
		{"half", 1000, 800, 50, 500, 400},
		{"third", 333, 77, 33, 109, 25},
		{"clamp to one", 10, 10, 1, 1, 1},
		{"one axis clamped", 400, 20, 2, 8, 1},
		{"near full", 99, 99, 99, 98, 98},
	}

	for _, resizer := range []Resizer{LanczosResizer{}, ImagingResizer{Filter: imaging.Lanczos}} {
		p := New(WithResizer(resizer))
		for _, tt := range tests {
			t.Run(resizer.Name()+"/"+tt.name, func(t *testing.T) {
				src := sourceOf(image.NewRGBA(image.Rect(0, 0, tt.width, tt.height)))
				out, err := p.Resize(src, tt.scale)
				require.NoError(t, err)
				assert.Equal(t, tt.wantW, out.Width)
				assert.Equal(t, tt.wantH, out.Height)
				assert.Equal(t, tt.wantW, out.Image.Bounds().Dx())
				assert.Equal(t, tt.wantH, out.Image.Bounds().Dy())
			})
		}
	}
}

func TestResize_RejectsOutOfRangeScale(t *testing.T) {
	p := New()
	src := sourceOf(testkit.Gradient(4, 4))

	for _, scale := range []int{0, -5, 101} {
		_, err := p.Resize(src, scale)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidScale), "scale %d", scale)
	}
}

func TestDecode(t *testing.T) {
	p := New()
	img := testkit.Gradient(24, 16)

	for name, data := range map[string][]byte{
		"png":  testkit.PNG(t, img),
		"jpeg": testkit.JPEG(t, img),
		"webp": testkit.WEBP(t, img),
	} {
		t.Run(name, func(t *testing.T) {
			src, err := p.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, name, src.Format.Extension())
			assert.Equal(t, 24, src.Width)
			assert.Equal(t, 16, src.Height)
			assert.Equal(t, len(data), src.Size)
		})
	}
}

func TestDecode_CorruptInputIsDecodeError(t *testing.T) {
	p := New()

	for name, data := range map[string][]byte{
		"text":      testkit.Corrupt,
		"empty":     nil,
		"truncated": testkit.TruncatedPNG(t),
		"gif":       []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"),
	} {
		t.Run(name, func(t *testing.T) {
			require.NotPanics(t, func() {
				_, err := p.Decode(data)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDecode), "got %v", err)
			})
		})
	}
}

func TestDecode_RejectsOversizedHeader(t *testing.T) {
	data := testkit.OversizedPNG(t, 300000, 300000)
	require.Less(t, len(data), 200)

	_, err := New().Decode(data)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDecode), "got %v", err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, DefaultMaxPixels, appErr.Details["maxPixels"])
	assert.Equal(t, 300000, appErr.Details["width"])
}

func TestDecode_MaxPixelsOption(t *testing.T) {
	data := testkit.PNG(t, testkit.Gradient(20, 10))

	_, err := New(WithMaxPixels(199)).Decode(data)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDecode), "got %v", err)

	src, err := New(WithMaxPixels(200)).Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 20, src.Width)

	p, err := NewFromConfig(Config{MaxPixels: 100})
	require.NoError(t, err)
	_, err = p.Decode(data)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDecode))

	p, err = NewFromConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPixels, p.maxPixels)
}

func TestEncode_PNGRoundTripsDimensions(t *testing.T) {
	p := New()
	src := sourceOf(testkit.Gradient(123, 45))

	for _, tier := range QualityTiers {
		data, err := p.Encode(src, FormatPNG, tier)
		require.NoError(t, err)

		decoded, err := p.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, decoded.Format)
		assert.Equal(t, 123, decoded.Width)
		assert.Equal(t, 45, decoded.Height)
	}
}

func TestEncode_PNGIgnoresQuality(t *testing.T) {
	p := New()
	src := sourceOf(testkit.Gradient(64, 64))

	poor, err := p.Encode(src, FormatPNG, QualityPoor)
	require.NoError(t, err)
	high, err := p.Encode(src, FormatPNG, QualityHigh)
	require.NoError(t, err)
	assert.Equal(t, poor, high)
}

func TestEncode_LossyQualityAffectsSize(t *testing.T) {
	p := New()
	src := sourceOf(testkit.Gradient(128, 128))

	for _, format := range []Format{FormatJPEG, FormatWEBP} {
		poor, err := p.Encode(src, format, QualityPoor)
		require.NoError(t, err)
		high, err := p.Encode(src, format, QualityHigh)
		require.NoError(t, err)
		assert.Less(t, len(poor), len(high), format)

		decoded, err := p.Decode(high)
		require.NoError(t, err)
		assert.Equal(t, format, decoded.Format)
	}
}

func TestEncode_JPEGFlattensTransparency(t *testing.T) {
	p := New()
	src := sourceOf(testkit.Translucent(32, 32))

	data, err := p.Encode(src, FormatJPEG, QualityHigh)
	require.NoError(t, err)

	out := testkit.Decode(t, data)
	r, g, b, _ := out.At(4, 16).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestEncode_JPEGFlattensOntoConfiguredBackground(t *testing.T) {
	p, err := NewFromConfig(Config{JPEGBackground: "#000", PNGCompression: "best", Workers: 1})
	require.NoError(t, err)

	data, err := p.Encode(sourceOf(testkit.Translucent(32, 32)), FormatJPEG, QualityHigh)
	require.NoError(t, err)

	r, g, b, _ := testkit.Decode(t, data).At(4, 16).RGBA()
	assert.Less(t, r>>8, uint32(16))
	assert.Less(t, g>>8, uint32(16))
	assert.Less(t, b>>8, uint32(16))
}

func TestEncode_Errors(t *testing.T) {
	p := New()
	src := sourceOf(testkit.Gradient(8, 8))

	_, err := p.Encode(src, Format("GIF"), QualityHigh)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnsupportedFormat))

	_, err = p.Encode(src, FormatJPEG, QualityTier("Ultra"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	p = New(WithEncoder(failingEncoder{}))
	_, err = p.Encode(src, FormatPNG, QualityHigh)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEncode))

	p = New(WithEncoder(panickingEncoder{}))
	_, err = p.Encode(src, FormatPNG, QualityHigh)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEncode))
}

type failingEncoder struct{}

func (failingEncoder) Format() Format { return FormatPNG }
func (failingEncoder) Encode(io.Writer, image.Image, int) error {
	return errors.New("disk on fire")
}

type panickingEncoder struct{}

func (panickingEncoder) Format() Format { return FormatPNG }
func (panickingEncoder) Encode(io.Writer, image.Image, int) error {
	panic("boom")
}

func TestTransformOne(t *testing.T) {
	p := New()
	in := Input{Name: "holiday.photo.png", Data: testkit.PNG(t, testkit.Gradient(200, 100))}

	res, err := p.TransformOne(context.Background(), in, settings(FormatWEBP, QualityGood, 50))
	require.NoError(t, err)
	assert.Equal(t, "out.webp", res.Filename)
	assert.Equal(t, "image/webp", res.MIMEType)
	assert.Equal(t, FormatPNG, res.SourceFormat)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)
	assert.Equal(t, len(in.Data), res.OriginalSize)
	assert.Equal(t, len(res.Data), res.CompressedSize)

	s := settings(FormatJPEG, QualityLow, 100)
	s.BaseName = ""
	res, err = p.TransformOne(context.Background(), in, s)
	require.NoError(t, err)
	assert.Equal(t, "holiday.photo.jpeg", res.Filename)
}

func TestTransformOne_InvalidSettings(t *testing.T) {
	p := New()
	in := Input{Name: "a.png", Data: testkit.PNG(t, testkit.Gradient(4, 4))}

	for name, s := range map[string]Settings{
		"scale zero":    settings(FormatPNG, QualityHigh, 0),
		"scale too big": settings(FormatPNG, QualityHigh, 101),
		"bad format":    settings(Format("BMP"), QualityHigh, 50),
		"bad quality":   settings(FormatPNG, QualityTier("Best"), 50),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.TransformOne(context.Background(), in, s)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)
		})
	}
}

func batchInputs(t *testing.T, widths ...int) []Input {
	inputs := make([]Input, len(widths))
	for i, w := range widths {
		inputs[i] = Input{Name: "upload.png", Data: testkit.PNG(t, testkit.Gradient(w, 20))}
	}
	return inputs
}

func TestTransformBatch_NamesAndTotals(t *testing.T) {
	p := New()
	inputs := batchInputs(t, 10, 20, 30)

	batch, err := p.TransformBatch(context.Background(), inputs, settings(FormatPNG, QualityMedium, 100))
	require.NoError(t, err)
	require.Equal(t, 3, batch.Len())

	var original, compressed int64
	for i, item := range batch.Items {
		assert.Equal(t, BatchName("out", i, FormatPNG), item.Filename)
		assert.Equal(t, (i+1)*10, item.Width)
		original += int64(item.OriginalSize)
		compressed += int64(item.CompressedSize)
	}
	assert.Equal(t, []string{"out_1.png", "out_2.png", "out_3.png"},
		[]string{batch.Items[0].Filename, batch.Items[1].Filename, batch.Items[2].Filename})
	assert.Equal(t, original, batch.OriginalBytes)
	assert.Equal(t, compressed, batch.CompressedBytes)
}

func TestTransformBatch_WorkersPreserveOrder(t *testing.T) {
	p := New(WithWorkers(4))
	widths := []int{5, 50, 15, 40, 25, 35, 45, 10}

	batch, err := p.TransformBatch(context.Background(), batchInputs(t, widths...), settings(FormatJPEG, QualityLow, 100))
	require.NoError(t, err)
	for i, w := range widths {
		assert.Equal(t, w, batch.Items[i].Width)
		assert.Equal(t, BatchName("out", i, FormatJPEG), batch.Items[i].Filename)
	}
}

func TestTransformBatch_ReportsEveryFailedIndex(t *testing.T) {
	for _, workers := range []int{1, 3} {
		p := New(WithWorkers(workers))
		inputs := batchInputs(t, 10, 10, 10, 10)
		inputs[1] = Input{Name: "notes.txt", Data: testkit.Corrupt}
		inputs[3] = Input{Name: "half.png", Data: testkit.TruncatedPNG(t)}

		batch, err := p.TransformBatch(context.Background(), inputs, settings(FormatPNG, QualityHigh, 50))
		assert.Nil(t, batch)

		var batchErr *BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, 4, batchErr.Total)
		assert.Equal(t, []int{1, 3}, batchErr.Indexes())
		for _, item := range batchErr.Items {
			assert.Equal(t, apperrors.ErrorTypeDecode, item.Kind)
		}
		assert.Equal(t, "notes.txt", batchErr.Items[0].Name)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDecode))
	}
}

func TestTransformBatch_Progress(t *testing.T) {
	p := New(WithWorkers(2))
	inputs := batchInputs(t, 8, 8, 8)
	inputs[2] = Input{Name: "bad", Data: testkit.Corrupt}

	var (
		mu    sync.Mutex
		calls []Progress
	)
	_, err := p.TransformBatch(context.Background(), inputs, settings(FormatPNG, QualityHigh, 100),
		WithProgress(func(pr Progress) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, pr)
		}))
	require.Error(t, err)

	require.Len(t, calls, 3)
	last := calls[len(calls)-1]
	assert.Equal(t, 2, last.Completed)
	assert.Equal(t, 1, last.Failed)
	assert.Equal(t, 3, last.Total)
	assert.InDelta(t, 100.0, last.Percentage(), 0.001)
	for i := 1; i < len(calls); i++ {
		assert.Greater(t, calls[i].Completed+calls[i].Failed, calls[i-1].Completed+calls[i-1].Failed)
	}
}

func TestTransformBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().TransformBatch(ctx, batchInputs(t, 4), settings(FormatPNG, QualityHigh, 100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransformBatch_Empty(t *testing.T) {
	_, err := New().TransformBatch(context.Background(), nil, settings(FormatPNG, QualityHigh, 100))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestPackageZip(t *testing.T) {
	p := New()
	batch, err := p.TransformBatch(context.Background(), batchInputs(t, 12, 24, 36), settings(FormatWEBP, QualityMedium, 50))
	require.NoError(t, err)

	archive, err := PackageZip(batch)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	var extracted int64
	for i, f := range zr.File {
		assert.Equal(t, batch.Items[i].Filename, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)

		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Equal(t, batch.Items[i].Data, data)
		extracted += int64(len(data))
	}
	assert.Equal(t, batch.CompressedBytes, extracted)

	again, err := PackageZip(batch)
	require.NoError(t, err)
	assert.Equal(t, archive, again)
}

func TestPackageZip_EmptyBatch(t *testing.T) {
	_, err := PackageZip(&BatchResult{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestInspect(t *testing.T) {
	p := New()
	in := Input{Name: "cat.jpg", Data: testkit.JPEG(t, testkit.Gradient(300, 200))}
	s := settings(FormatPNG, QualityGood, 10)
	s.BaseName = ""

	info, err := p.Inspect(context.Background(), in, s)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, info.SourceFormat)
	assert.Equal(t, 300, info.Width)
	assert.Equal(t, 200, info.Height)
	assert.Equal(t, 30, info.OutputWidth)
	assert.Equal(t, 20, info.OutputHeight)
	assert.Equal(t, 80, info.QualityLevel)
	assert.Equal(t, "cat.png", info.OutputName)
	assert.Positive(t, info.CompressedSize)
}

type countingObserver struct {
	mu         sync.Mutex
	transforms int
	batches    int
}

func (o *countingObserver) ObserveTransform(Format, int, int, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transforms++
}

func (o *countingObserver) ObserveBatch(int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches++
}

func TestInspect_NotObserved(t *testing.T) {
	obs := &countingObserver{}
	p := New(WithObserver(obs))
	in := Input{Name: "cat.png", Data: testkit.PNG(t, testkit.Gradient(40, 30))}

	_, err := p.Inspect(context.Background(), in, settings(FormatJPEG, QualityMedium, 50))
	require.NoError(t, err)
	assert.Zero(t, obs.transforms)

	_, err = p.TransformOne(context.Background(), in, settings(FormatJPEG, QualityMedium, 50))
	require.NoError(t, err)
	assert.Equal(t, 1, obs.transforms)
}

func TestNewFromConfig(t *testing.T) {
	p, err := NewFromConfig(Config{Resampler: "imaging", Workers: 6, PNGCompression: "speed", JPEGBackground: "#123456"})
	require.NoError(t, err)
	assert.Equal(t, "imaging", p.resizer.Name())
	assert.Equal(t, 6, p.Workers())
	assert.True(t, p.autoOrient)

	_, err = NewFromConfig(Config{Resampler: "bicubic"})
	assert.Error(t, err)
	_, err = NewFromConfig(Config{PNGCompression: "max"})
	assert.Error(t, err)
	_, err = NewFromConfig(Config{JPEGBackground: "white"})
	assert.Error(t, err)
}
