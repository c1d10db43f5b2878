package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"sparkd/internal/structures"
	"time"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncLikesGranted()
	IncMatchesGranted()
	IncQuotaDenied(kind string)
	IncBusinessEvent(name string)
	SetBalance(amount float64)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	likesGranted        prometheus.Counter
	matchesGranted      prometheus.Counter
	quotaDenied         *prometheus.CounterVec
	businessEvents      *prometheus.CounterVec
	balance             prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncLikesGranted() {
	m.likesGranted.Inc()
}

func (m *MetricsProvider) IncMatchesGranted() {
	m.matchesGranted.Inc()
}

func (m *MetricsProvider) IncQuotaDenied(kind string) {
	m.quotaDenied.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) IncBusinessEvent(name string) {
	m.businessEvents.WithLabelValues(name).Inc()
}

func (m *MetricsProvider) SetBalance(amount float64) {
	m.balance.Set(amount)
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sparkd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sparkd_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sparkd_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sparkd_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		likesGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sparkd_likes_granted_total",
			Help: "Total number of granted likes",
		}),

		matchesGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sparkd_matches_granted_total",
			Help: "Total number of granted matches",
		}),

		quotaDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkd_quota_denied_total",
			Help: "Total number of denied gated actions",
		}, []string{"kind"}),

		businessEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkd_business_events_total",
			Help: "Total number of business events by name",
		}, []string{"name"}),

		balance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sparkd_balance",
			Help: "Current reward balance",
		}),
	}
}

type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncLikesGranted()                                 {}
func (n *noopMetrics) IncMatchesGranted()                               {}
func (n *noopMetrics) IncQuotaDenied(_ string)                          {}
func (n *noopMetrics) IncBusinessEvent(_ string)                        {}
func (n *noopMetrics) SetBalance(_ float64)                             {}
