package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters and gauges
type Metrics struct {
	publications     *prometheus.CounterVec
	postsPublished   *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	platformUp       *prometheus.GaugeVec
	contentGenerated *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg. Pass prometheus.DefaultRegisterer
// in production and prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		publications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smm_publications_total",
			Help: "Publication attempts per platform and outcome",
		}, []string{"platform", "status"}),
		postsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smm_posts_published_total",
			Help: "Posts that reached published status, by delivery completeness",
		}, []string{"delivery"}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "smm_sweep_duration_seconds",
			Help:    "Duration of the scheduled posts sweep",
			Buckets: prometheus.DefBuckets,
		}),
		platformUp: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smm_platform_up",
			Help: "Result of the last platform connection check (1 = connected)",
		}, []string{"platform"}),
		contentGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smm_content_generated_total",
			Help: "Generated post texts by source (ai or template)",
		}, []string{"source"}),
	}
}

// NopMetrics returns metrics bound to a private registry
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func (m *Metrics) PublicationAttempt(platform string, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.publications.WithLabelValues(platform, status).Inc()
}

func (m *Metrics) PostPublished(delivery string) {
	m.postsPublished.WithLabelValues(delivery).Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	m.sweepDuration.Observe(d.Seconds())
}

func (m *Metrics) PlatformUp(platform string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.platformUp.WithLabelValues(platform).Set(v)
}

func (m *Metrics) ContentGenerated(source string) {
	m.contentGenerated.WithLabelValues(source).Inc()
}
