package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamed0406/pushfailover/internal/domain"
)

// Collector holds the agent's Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	checksTotal    *prometheus.CounterVec
	probeLatency   *prometheus.HistogramVec
	targetUp       *prometheus.GaugeVec
	pushFailures   *prometheus.CounterVec
	rotationsTotal *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushfailover_checks_total",
				Help: "Reachability checks by target and result",
			},
			[]string{"target", "result"},
		),
		probeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pushfailover_probe_latency_seconds",
				Help:    "TCP connect latency of successful probes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target"},
		),
		targetUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pushfailover_target_up",
				Help: "1 if the last probe succeeded",
			},
			[]string{"target"},
		),
		pushFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushfailover_push_failures_total",
				Help: "Status pushes that failed",
			},
			[]string{"target"},
		),
		rotationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushfailover_dns_rotations_total",
				Help: "CNAME rotation attempts by result",
			},
			[]string{"target", "result"},
		),
	}
	c.registry.MustRegister(
		c.checksTotal,
		c.probeLatency,
		c.targetUp,
		c.pushFailures,
		c.rotationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveCheck(target string, out domain.Outcome) {
	if out.IsUp() {
		c.checksTotal.WithLabelValues(target, "up").Inc()
		c.targetUp.WithLabelValues(target).Set(1)
		c.probeLatency.WithLabelValues(target).Observe(float64(out.LatencyMS) / 1000)
		return
	}
	c.checksTotal.WithLabelValues(target, string(out.Failure)).Inc()
	c.targetUp.WithLabelValues(target).Set(0)
}

func (c *Collector) ObservePushFailure(target string) {
	c.pushFailures.WithLabelValues(target).Inc()
}

func (c *Collector) ObserveRotation(target, result string) {
	c.rotationsTotal.WithLabelValues(target, result).Inc()
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
