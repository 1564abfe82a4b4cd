package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_broker_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hls_broker_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// CatalogRequests counts catalog searches by response status ("error" when no response arrived)
	CatalogRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_broker_catalog_requests_total",
			Help: "Catalog search requests by response status.",
		},
		[]string{"status"},
	)

	// BandsExtracted counts clipped bands by collection
	BandsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_broker_bands_extracted_total",
			Help: "Bands read and clipped from remote rasters.",
		},
		[]string{"collection"},
	)

	// CompositeImages counts composite entries by instrument and whether they were mosaicked
	CompositeImages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_broker_composite_images_total",
			Help: "Images placed in temporal composites.",
		},
		[]string{"instrument", "kind"},
	)

	// InferenceDuration observes forward passes
	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hls_broker_inference_duration_seconds",
			Help:    "Duration of model forward passes in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	// ScenesSynced counts scenes written to the local index
	ScenesSynced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hls_broker_scenes_synced_total",
			Help: "Scenes upserted into the local index.",
		},
	)

	// Animations counts ffmpeg encodings by format and result
	Animations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_broker_animations_total",
			Help: "Animation encodings by format and result.",
		},
		[]string{"format", "result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(CatalogRequests)
	prometheus.MustRegister(BandsExtracted)
	prometheus.MustRegister(CompositeImages)
	prometheus.MustRegister(InferenceDuration)
	prometheus.MustRegister(ScenesSynced)
	prometheus.MustRegister(Animations)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the mux path template so that parameterised routes
// share one label. Unrouted paths collapse to "other".
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := routeLabel(r)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
