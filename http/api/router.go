package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/leeforge/imgpress/http/middleware"
	"github.com/leeforge/imgpress/http/responder"
	"github.com/leeforge/imgpress/logging"
	"github.com/leeforge/imgpress/metrics"
)

// RouterOptions wires optional collaborators into the router. Nil fields
// disable the matching feature.
type RouterOptions struct {
	Logger      logging.Logger
	Metrics     *metrics.Collector
	MetricsPath string
	RateLimiter *middleware.RateLimiter
	// Timeout bounds image processing per request. 0 disables it.
	Timeout time.Duration
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

// NewRouter mounts the health, metrics and image routes.
func NewRouter(images *ImageHandler, opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	r := chi.NewRouter()
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.TimingMiddleware())
	r.Use(logging.HTTPMiddleware(logger))
	r.Use(logging.RecoveryMiddleware(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responder.NotFound(w, r, middleware.Meta(r)...)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responder.WriteError(w, r, http.StatusMethodNotAllowed,
			responder.NewError(responder.ErrCodeBadRequest, "Method Not Allowed"), middleware.Meta(r)...)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		responder.OK(w, r, map[string]string{"status": "ok"}, middleware.Meta(r)...)
	})
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, opts.Metrics.Handler())
	}

	r.Route("/api/v1/images", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}
		r.Use(middleware.MaxBodySize(images.limits.MaxUploadBytes))
		if opts.Timeout > 0 {
			r.Use(middleware.Deadline(opts.Timeout))
		}

		r.Post("/compress", images.Compress)
		r.Post("/compress/batch", images.CompressBatch)
		r.Post("/inspect", images.Inspect)
	})

	return r
}
