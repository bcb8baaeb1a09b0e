// Package metrics собирает счётчики планировщика в собственный prometheus-реестр.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "court_scheduler"

type Collector struct {
	registry *prometheus.Registry

	conflicts    *prometheus.CounterVec
	replacements *prometheus.CounterVec
	credits      *prometheus.CounterVec
	sweepSent    prometheus.Counter
}

// New регистрирует счётчики и стандартные go/process коллекторы
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Reservations rejected because of an overlapping slot, by conflicting kind.",
		}, []string{"kind"}),
		replacements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replacement_bookings_total",
			Help:      "Replacement booking attempts by outcome.",
		}, []string{"outcome"}),
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_events_total",
			Help:      "Replacement credit lifecycle events.",
		}, []string{"event"}),
		sweepSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_expiry_notifications_total",
			Help:      "Expiry reminders delivered by the credit sweep.",
		}),
	}

	c.registry.MustRegister(
		c.conflicts,
		c.replacements,
		c.credits,
		c.sweepSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ConflictRejected(kind string) {
	c.conflicts.WithLabelValues(kind).Inc()
}

func (c *Collector) ReplacementBooked(outcome string) {
	c.replacements.WithLabelValues(outcome).Inc()
}

func (c *Collector) CreditEvent(event string) {
	c.credits.WithLabelValues(event).Inc()
}

func (c *Collector) SweepNotified(n int) {
	if n > 0 {
		c.sweepSent.Add(float64(n))
	}
}

// Registry для тестов и дополнительных коллекторов (например, статистики пула)
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler отдаёт метрики в формате Prometheus
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
