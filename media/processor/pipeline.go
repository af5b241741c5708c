package processor

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"time"

	"github.com/leeforge/imgpress/concurrency"
	apperrors "github.com/leeforge/imgpress/errors"
	"github.com/leeforge/imgpress/logging"
	"go.uber.org/zap"
)

// Observer receives timing and outcome of every transform. metrics.Collector
// implements it.
type Observer interface {
	ObserveTransform(format Format, inBytes, outBytes int, took time.Duration, err error)
	ObserveBatch(items int, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveTransform(Format, int, int, time.Duration, error) {}
func (nopObserver) ObserveBatch(int, error)                                {}

// Pipeline decodes, resizes and re-encodes images. It holds only immutable
// configuration and is safe for concurrent use.
type Pipeline struct {
	resizer    Resizer
	encoders   map[Format]Encoder
	autoOrient bool
	maxPixels  int64
	executor   *concurrency.ParallelExecutor
	observer   Observer
	logger     logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithResizer replaces the default Lanczos resizer.
func WithResizer(r Resizer) Option {
	return func(p *Pipeline) { p.resizer = r }
}

// WithEncoder registers or replaces the encoder for e.Format().
func WithEncoder(e Encoder) Option {
	return func(p *Pipeline) { p.encoders[e.Format()] = e }
}

// WithAutoOrient toggles EXIF orientation correction on decode.
func WithAutoOrient(enabled bool) Option {
	return func(p *Pipeline) { p.autoOrient = enabled }
}

// WithMaxPixels limits width*height of accepted uploads. 0 disables the check.
func WithMaxPixels(n int64) Option {
	return func(p *Pipeline) { p.maxPixels = n }
}

// WithWorkers bounds batch fan-out. 1 is sequential.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.executor = concurrency.NewParallelExecutor(n) }
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// DefaultMaxPixels is the largest accepted width*height, about 179 megapixels.
const DefaultMaxPixels int64 = 178956970

// New returns a Pipeline with Lanczos resizing, white JPEG background, best
// PNG compression, DefaultMaxPixels and sequential batches.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		resizer: LanczosResizer{},
		encoders: map[Format]Encoder{
			FormatJPEG: JPEGEncoder{Background: color.White},
			FormatPNG:  PNGEncoder{Level: png.BestCompression},
			FormatWEBP: WebPEncoder{},
		},
		autoOrient: true,
		maxPixels:  DefaultMaxPixels,
		executor:   concurrency.NewParallelExecutor(1),
		observer:   nopObserver{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig builds a Pipeline from configuration. opts are applied last.
func NewFromConfig(cfg Config, opts ...Option) (*Pipeline, error) {
	resizer, err := NewResizer(cfg.Resampler)
	if err != nil {
		return nil, err
	}
	level, err := ParseCompressionLevel(cfg.PNGCompression)
	if err != nil {
		return nil, err
	}
	background := color.Color(color.White)
	if cfg.JPEGBackground != "" {
		if background, err = ParseHexColor(cfg.JPEGBackground); err != nil {
			return nil, err
		}
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	base := []Option{
		WithResizer(resizer),
		WithEncoder(JPEGEncoder{Background: background}),
		WithEncoder(PNGEncoder{Level: level}),
		WithAutoOrient(!cfg.IgnoreEXIF),
		WithMaxPixels(maxPixels),
		WithWorkers(workers),
	}
	return New(append(base, opts...)...), nil
}

// Workers returns the batch concurrency bound.
func (p *Pipeline) Workers() int {
	return p.executor.Workers()
}

// TransformOne decodes, resizes and encodes a single upload. The output is
// named {base}.{ext}.
func (p *Pipeline) TransformOne(ctx context.Context, in Input, settings Settings) (*Result, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := resolveBaseName(settings.BaseName, in.Name)
	return p.transform(in, settings, OutputName(base, settings.Format))
}

// TransformBatch transforms every input with the same settings. Items are
// named {base}_{i+1}.{ext} in upload order. Every item is attempted; if any
// fails the result is nil and the error is a *BatchError listing each failed
// index.
func (p *Pipeline) TransformBatch(ctx context.Context, inputs []Input, settings Settings, opts ...BatchOption) (*BatchResult, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, apperrors.NewValidation("no images to process")
	}

	var bo batchOptions
	for _, opt := range opts {
		opt(&bo)
	}

	base := resolveBaseName(settings.BaseName, inputs[0].Name)

	tracker := newProgressTracker(len(inputs), bo.progress)
	items := make([]*Result, len(inputs))
	tasks := make([]concurrency.Task, len(inputs))
	for i, in := range inputs {
		tasks[i] = func(context.Context) error {
			res, err := p.transform(in, settings, BatchName(base, i, settings.Format))
			items[i] = res
			tracker.done(i, err)
			return err
		}
	}

	errs := p.executor.Execute(ctx, tasks)

	if err := ctx.Err(); err != nil {
		p.observer.ObserveBatch(len(inputs), err)
		return nil, err
	}

	batch := &BatchResult{Items: items}
	var batchErr *BatchError
	for i, err := range errs {
		if err != nil {
			if batchErr == nil {
				batchErr = &BatchError{Total: len(inputs)}
			}
			batchErr.Items = append(batchErr.Items, newItemError(i, inputs[i].Name, err))
			continue
		}
		batch.OriginalBytes += int64(items[i].OriginalSize)
		batch.CompressedBytes += int64(items[i].CompressedSize)
	}

	if batchErr != nil {
		p.observer.ObserveBatch(len(inputs), batchErr)
		p.logger.Warn("batch failed",
			zap.Int("total", len(inputs)),
			zap.Ints("failed", batchErr.Indexes()),
		)
		return nil, batchErr
	}

	p.observer.ObserveBatch(len(inputs), nil)
	p.logger.Debug("batch complete",
		zap.Int("items", batch.Len()),
		zap.Int64("originalBytes", batch.OriginalBytes),
		zap.Int64("compressedBytes", batch.CompressedBytes),
	)
	return batch, nil
}

// BatchOption configures a single TransformBatch call.
type BatchOption func(*batchOptions)

type batchOptions struct {
	progress ProgressFunc
}

// WithProgress reports each finished item.
func WithProgress(fn ProgressFunc) BatchOption {
	return func(o *batchOptions) { o.progress = fn }
}

func (p *Pipeline) transform(in Input, settings Settings, filename string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		out := 0
		if res != nil {
			out = res.CompressedSize
		}
		p.observer.ObserveTransform(settings.Format, len(in.Data), out, time.Since(start), err)
	}()

	src, err := p.Decode(in.Data)
	if err != nil {
		return nil, err
	}
	return p.render(in.Name, src, settings, filename)
}

// render resizes and encodes an already decoded image. It does not report to
// the observer.
func (p *Pipeline) render(name string, src *SourceImage, settings Settings, filename string) (*Result, error) {
	start := time.Now()
	resized, err := p.Resize(src, settings.Scale)
	if err != nil {
		return nil, err
	}
	data, err := p.Encode(resized, settings.Format, settings.Quality)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("image transformed",
		zap.String("name", name),
		zap.String("output", filename),
		zap.String("from", string(src.Format)),
		zap.String("to", string(settings.Format)),
		zap.String("size", fmt.Sprintf("%dx%d->%dx%d", src.Width, src.Height, resized.Width, resized.Height)),
		zap.Duration("took", time.Since(start)),
	)

	return &Result{
		Filename:       filename,
		MIMEType:       settings.Format.MIMEType(),
		SourceFormat:   src.Format,
		Width:          resized.Width,
		Height:         resized.Height,
		OriginalSize:   src.Size,
		CompressedSize: len(data),
		Data:           data,
	}, nil
}
