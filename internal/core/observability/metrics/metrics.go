// Package metrics exposes engine counters. The engine only sees Recorder;
// Prometheus is one implementation and Nop is the default.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Recorder interface {
	// Evaluation counts one evaluator invocation by resolution kind.
	Evaluation(kind string, failed bool)
	// CacheHit counts a query served from the frame cache.
	CacheHit()
	// Notification counts one change callback fired.
	Notification()
	// Tick observes the wall time spent in one entity tick.
	Tick(d time.Duration)
	// Entities sets the number of live entities.
	Entities(n int)
	// Flush counts one persistent store write, or a skipped one.
	Flush(skipped bool, failed bool)
}

type Nop struct{}

func (Nop) Evaluation(string, bool) {}
func (Nop) CacheHit()               {}
func (Nop) Notification()           {}
func (Nop) Tick(time.Duration)      {}
func (Nop) Entities(int)            {}
func (Nop) Flush(bool, bool)        {}

type Prometheus struct {
	evaluations   *prometheus.CounterVec
	cacheHits     prometheus.Counter
	notifications prometheus.Counter
	tickDuration  prometheus.Histogram
	entities      prometheus.Gauge
	flushes       *prometheus.CounterVec
}

// NewPrometheus registers the collectors on reg. A nil reg uses the default
// registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Prometheus{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "evaluations_total",
			Help:      "Evaluator invocations by resolution kind and outcome.",
		}, []string{"kind", "outcome"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "cache_hits_total",
			Help:      "Queries answered from the frame cache.",
		}),
		notifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "notifications_total",
			Help:      "Change callbacks fired.",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telemetry",
			Name:      "tick_duration_seconds",
			Help:      "Time spent refreshing one entity.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		entities: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "telemetry",
			Name:      "entities",
			Help:      "Live entities.",
		}),
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "flushes_total",
			Help:      "Persistent store flushes by outcome.",
		}, []string{"outcome"}),
	}
}

func (p *Prometheus) Evaluation(kind string, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	p.evaluations.WithLabelValues(kind, outcome).Inc()
}

func (p *Prometheus) CacheHit() { p.cacheHits.Inc() }

func (p *Prometheus) Notification() { p.notifications.Inc() }

func (p *Prometheus) Tick(d time.Duration) { p.tickDuration.Observe(d.Seconds()) }

func (p *Prometheus) Entities(n int) { p.entities.Set(float64(n)) }

func (p *Prometheus) Flush(skipped bool, failed bool) {
	switch {
	case failed:
		p.flushes.WithLabelValues("error").Inc()
	case skipped:
		p.flushes.WithLabelValues("unchanged").Inc()
	default:
		p.flushes.WithLabelValues("written").Inc()
	}
}
