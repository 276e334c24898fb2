package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector manages Prometheus metrics for the validation engine.
type Collector struct {
	registry *prometheus.Registry

	validationsTotal    *prometheus.CounterVec
	validationDuration  *prometheus.HistogramVec
	slaBreachesTotal    *prometheus.CounterVec
	cacheHitsTotal      prometheus.Counter
	cacheMissesTotal    prometheus.Counter
	fallbacksTotal      prometheus.Counter
	limitRejections     prometheus.Counter
	inputRejections     prometheus.Counter
	semanticDuration    prometheus.Histogram
	activeRules         prometheus.Gauge
}

// NewCollector creates a collector with its own registry so tests can build
// collectors freely.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		validationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "validation_requests_total",
			Help: "Total validation requests by result, mode and content type",
		}, []string{"result", "mode", "content_type"}),
		validationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "validation_duration_seconds",
			Help:    "End to end validation latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 2.5, 5},
		}, []string{"mode", "content_type"}),
		slaBreachesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "validation_sla_breaches_total",
			Help: "Validations exceeding the configured SLA threshold",
		}, []string{"mode", "content_type"}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_cache_hits_total",
			Help: "Verdict cache hits",
		}),
		cacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_cache_misses_total",
			Help: "Verdict cache misses",
		}),
		fallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_fallbacks_total",
			Help: "Verdicts degraded because semantic review failed",
		}),
		limitRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_limit_rejections_total",
			Help: "Requests rejected by the daily limit",
		}),
		inputRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_input_rejections_total",
			Help: "Requests rejected before pipeline entry for invalid input",
		}),
		semanticDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "semantic_review_duration_seconds",
			Help:    "External language model call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2},
		}),
		activeRules: factory.NewGauge(prometheus.GaugeOpts{
			Name: "validation_active_rules",
			Help: "Number of loaded rules in the rule pack",
		}),
	}
}

// Registry exposes the backing registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveValidation(result, mode, contentType string, d time.Duration) {
	c.validationsTotal.WithLabelValues(result, mode, contentType).Inc()
	c.validationDuration.WithLabelValues(mode, contentType).Observe(d.Seconds())
}

func (c *Collector) SLABreach(mode, contentType string) {
	c.slaBreachesTotal.WithLabelValues(mode, contentType).Inc()
}

func (c *Collector) CacheHit()  { c.cacheHitsTotal.Inc() }
func (c *Collector) CacheMiss() { c.cacheMissesTotal.Inc() }

func (c *Collector) Fallback() { c.fallbacksTotal.Inc() }

func (c *Collector) LimitRejection() { c.limitRejections.Inc() }
func (c *Collector) InputRejection() { c.inputRejections.Inc() }

func (c *Collector) ObserveSemantic(d time.Duration) {
	c.semanticDuration.Observe(d.Seconds())
}

func (c *Collector) SetActiveRules(n int) {
	c.activeRules.Set(float64(n))
}
