// Package metrics exposes Prometheus metrics for the pipeline and HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/leeforge/imgpress/errors"
	"github.com/leeforge/imgpress/logging"
	"github.com/leeforge/imgpress/media/processor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap/zapcore"
)

const namespace = "imgpress"

// Config controls the /metrics endpoint.
type Config struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" default:"true"`
	Path    string `mapstructure:"path" json:"path" yaml:"path" default:"/metrics"`
}

// Collector 指标收集器
//
// Collector owns its registry so tests and multiple servers never collide on
// the global one.
type Collector struct {
	registry *prometheus.Registry

	transforms        *prometheus.CounterVec
	transformDuration *prometheus.HistogramVec
	bytesIn           prometheus.Counter
	bytesOut          *prometheus.CounterVec
	batches           *prometheus.CounterVec
	batchSize         prometheus.Histogram

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	logEntries *prometheus.CounterVec
}

// NewCollector 创建指标收集器
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		transforms: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transforms_total",
			Help:      "Total number of image transforms by output format and outcome",
		}, []string{"format", "status"}),
		transformDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Duration of decode, resize and encode for one image",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"format"}),
		bytesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_bytes_total",
			Help:      "Total bytes of uploaded images",
		}),
		bytesOut: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Total bytes of encoded images",
		}, []string{"format"}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of batches by outcome",
		}, []string{"status"}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Distribution of batch sizes",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_entries_total",
			Help:      "Total number of log entries by level",
		}, []string{"level"}),
	}
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveTransform implements processor.Observer.
func (c *Collector) ObserveTransform(format processor.Format, inBytes, outBytes int, took time.Duration, err error) {
	label := format.Extension()
	c.transforms.WithLabelValues(label, status(err)).Inc()
	c.transformDuration.WithLabelValues(label).Observe(took.Seconds())
	c.bytesIn.Add(float64(inBytes))
	if err == nil {
		c.bytesOut.WithLabelValues(label).Add(float64(outBytes))
	}
}

// ObserveBatch implements processor.Observer.
func (c *Collector) ObserveBatch(items int, err error) {
	c.batches.WithLabelValues(status(err)).Inc()
	c.batchSize.Observe(float64(items))
}

// status labels an outcome with "ok" or the error kind.
func status(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.TypeOf(err))
}

// LogHook counts log entries per level.
func (c *Collector) LogHook() logging.Hook {
	return func(entry zapcore.Entry) error {
		c.logEntries.WithLabelValues(entry.Level.String()).Inc()
		return nil
	}
}

// Middleware records request count and latency per chi route pattern, so
// path parameters do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		c.requests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		c.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Compile-time check that Collector satisfies processor.Observer.
var _ processor.Observer = (*Collector)(nil)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
