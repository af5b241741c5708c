package api

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/leeforge/imgpress/http/binding"
	"github.com/leeforge/imgpress/http/middleware"
	"github.com/leeforge/imgpress/http/responder"
	"github.com/leeforge/imgpress/logging"
	"github.com/leeforge/imgpress/media/processor"
	"go.uber.org/zap"
)

// Size statistics headers set on every compression response.
const (
	HeaderOriginalSize    = "X-Original-Size"
	HeaderCompressedSize  = "X-Compressed-Size"
	HeaderRatio           = "X-Compression-Ratio"
	HeaderImagesProcessed = "X-Images-Processed"
)

// Limits bounds a single upload request.
type Limits struct {
	MaxUploadBytes int64
	MaxFiles       int
}

// engine is swapped as a unit when the pipeline configuration reloads.
type engine struct {
	pipeline *processor.Pipeline
	defaults processor.Settings
}

// ImageHandler serves the compression endpoints.
type ImageHandler struct {
	engine atomic.Pointer[engine]
	limits Limits
	logger logging.Logger
	opts   []processor.Option
}

// compressForm is the multipart form of every image endpoint. Settings
// fields are pre-filled with configured defaults before binding.
type compressForm struct {
	processor.Settings
	Index int `form:"index" validate:"min=0"`
}

// NewImageHandler builds a handler from the pipeline configuration. opts are
// applied to every pipeline it builds, including on Reload.
func NewImageHandler(cfg processor.Config, limits Limits, logger logging.Logger, opts ...processor.Option) (*ImageHandler, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &ImageHandler{limits: limits, logger: logger, opts: opts}
	if err := h.Reload(cfg); err != nil {
		return nil, err
	}
	return h, nil
}

// Reload atomically replaces the pipeline and defaults. In-flight requests
// finish on the old pipeline.
func (h *ImageHandler) Reload(cfg processor.Config) error {
	defaults, err := cfg.DefaultSettings()
	if err != nil {
		return err
	}
	opts := append([]processor.Option{processor.WithLogger(h.logger)}, h.opts...)
	pipeline, err := processor.NewFromConfig(cfg, opts...)
	if err != nil {
		return err
	}
	h.engine.Store(&engine{pipeline: pipeline, defaults: defaults})
	return nil
}

func (h *ImageHandler) bind(r *http.Request) (*engine, *compressForm, []processor.Input, error) {
	eng := h.engine.Load()
	form := &compressForm{Settings: eng.defaults}

	uploads, err := binding.Multipart(r, form, binding.MultipartLimits{
		MaxMemory: h.limits.MaxUploadBytes,
		MaxFiles:  h.limits.MaxFiles,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	inputs := make([]processor.Input, len(uploads))
	for i, u := range uploads {
		inputs[i] = processor.Input{Name: u.Name, Data: u.Data}
	}
	return eng, form, inputs, nil
}

// Compress handles single mode: the upload at form index is compressed and
// returned as a download.
func (h *ImageHandler) Compress(w http.ResponseWriter, r *http.Request) {
	eng, form, inputs, err := h.bind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	nav, err := processor.NewNavigation(form.Index, len(inputs))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := eng.pipeline.TransformOne(r.Context(), inputs[nav.Index], form.Settings)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	header := sizeHeader(int64(res.OriginalSize), int64(res.CompressedSize), res.Ratio())
	responder.File(w, r, responder.Attachment{
		Filename:    res.Filename,
		ContentType: res.MIMEType,
		Data:        res.Data,
		Header:      header,
	}, middleware.Meta(r)...)
}

// CompressBatch handles batch mode: every upload is compressed and the
// results are returned as one ZIP archive.
func (h *ImageHandler) CompressBatch(w http.ResponseWriter, r *http.Request) {
	eng, form, inputs, err := h.bind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	batch, err := eng.pipeline.TransformBatch(r.Context(), inputs, form.Settings)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	archive, err := processor.PackageZip(batch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	header := sizeHeader(batch.OriginalBytes, batch.CompressedBytes, batch.Ratio())
	header.Set(HeaderImagesProcessed, strconv.Itoa(batch.Len()))
	responder.File(w, r, responder.Attachment{
		Filename:    processor.ArchiveName,
		ContentType: "application/zip",
		Data:        archive,
		Header:      header,
	}, middleware.Meta(r)...)
}

type navigationView struct {
	Index   int  `json:"index"`
	Total   int  `json:"total"`
	HasPrev bool `json:"hasPrev"`
	HasNext bool `json:"hasNext"`
}

type inspectView struct {
	*processor.Info
	Navigation navigationView `json:"navigation"`
}

// Inspect reports dimensions and projected sizes of the upload at form index.
func (h *ImageHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	eng, form, inputs, err := h.bind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	nav, err := processor.NewNavigation(form.Index, len(inputs))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	info, err := eng.pipeline.Inspect(r.Context(), inputs[nav.Index], form.Settings)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	responder.OK(w, r, inspectView{
		Info: info,
		Navigation: navigationView{
			Index:   nav.Index,
			Total:   nav.Total,
			HasPrev: nav.HasPrev(),
			HasNext: nav.HasNext(),
		},
	}, middleware.Meta(r)...)
}

func (h *ImageHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Warn("image request failed", zap.Error(err))
	responder.Err(w, r, err, middleware.Meta(r)...)
}

func sizeHeader(original, compressed int64, ratio float64) http.Header {
	h := http.Header{}
	h.Set(HeaderOriginalSize, strconv.FormatInt(original, 10))
	h.Set(HeaderCompressedSize, strconv.FormatInt(compressed, 10))
	h.Set(HeaderRatio, fmt.Sprintf("%.2f", ratio))
	return h
}
