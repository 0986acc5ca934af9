package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls metric naming
type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// DefaultConfig returns the default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Namespace: "chatgw",
		Path:      "/metrics",
	}
}

// Metrics groups every collector exposed by the gateway.
//
// Metrics:
//   - chatgw_http_requests_total: requests by route, method and status
//   - chatgw_http_request_duration_seconds: request latency by route
//   - chatgw_media_cache_lookups_total: media lookups by result (hit, miss)
//   - chatgw_media_downloads_total: upstream media downloads by outcome
//   - chatgw_media_bytes_written_total: bytes persisted into the cache
//   - chatgw_search_requests_total: search calls by provider and outcome
//   - chatgw_search_duration_seconds: search latency by provider
//   - chatgw_relay_streams_total: relay calls by outcome
//   - chatgw_relay_frames_skipped_total: malformed frames dropped by the relay
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	cacheLookups  *prometheus.CounterVec
	downloads     *prometheus.CounterVec
	bytesWritten  prometheus.Counter
	searchCalls   *prometheus.CounterVec
	searchLatency *prometheus.HistogramVec
	relayStreams  *prometheus.CounterVec
	framesSkipped prometheus.Counter
}

// New creates and registers all collectors with a private registry.
func New(cfg *Config) *Metrics {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ns := cfg.Namespace

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "media",
				Name:      "cache_lookups_total",
				Help:      "Media cache lookups by result",
			},
			[]string{"result"},
		),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "media",
				Name:      "downloads_total",
				Help:      "Upstream media downloads by outcome",
			},
			[]string{"outcome"},
		),
		bytesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "media",
				Name:      "bytes_written_total",
				Help:      "Bytes persisted into the media cache",
			},
		),
		searchCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "search",
				Name:      "requests_total",
				Help:      "Search provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		searchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Search provider latency",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		),
		relayStreams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "relay",
				Name:      "streams_total",
				Help:      "Streaming relay calls by outcome",
			},
			[]string{"outcome"},
		),
		framesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "relay",
				Name:      "frames_skipped_total",
				Help:      "Malformed stream frames skipped by the relay",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.cacheLookups,
		m.downloads,
		m.bytesWritten,
		m.searchCalls,
		m.searchLatency,
		m.relayStreams,
		m.framesSkipped,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency per route template
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheLookups.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// Download records one upstream media fetch; outcome is "ok" or "error".
func (m *Metrics) Download(outcome string) {
	if m != nil {
		m.downloads.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) BytesWritten(n int) {
	if m != nil {
		m.bytesWritten.Add(float64(n))
	}
}

// Search records one provider call.
func (m *Metrics) Search(provider, outcome string, d time.Duration) {
	if m != nil {
		m.searchCalls.WithLabelValues(provider, outcome).Inc()
		m.searchLatency.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func (m *Metrics) RelayStream(outcome string) {
	if m != nil {
		m.relayStreams.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) FrameSkipped() {
	if m != nil {
		m.framesSkipped.Inc()
	}
}
