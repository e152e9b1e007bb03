// Package metrics defines the Prometheus collectors and the HTTP server
// exposing them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fhunt_bot/internal/model"
)

// Metrics groups the bot collectors.
type Metrics struct {
	AlertsSent   *prometheus.CounterVec
	FetchErrors  *prometheus.CounterVec
	Commands     *prometheus.CounterVec
	PollDuration prometheus.Histogram
	Paused       prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		AlertsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fhunt_alerts_sent_total",
			Help: "Alerts dispatched to the chat, by category.",
		}, []string{"category"}),
		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fhunt_fetch_errors_total",
			Help: "Failed marketplace fetches, by category.",
		}, []string{"category"}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fhunt_commands_total",
			Help: "Handled chat commands and callbacks, by name.",
		}, []string{"command"}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fhunt_poll_duration_seconds",
			Help:    "Duration of a full poll cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		Paused: f.NewGauge(prometheus.GaugeOpts{
			Name: "fhunt_paused",
			Help: "1 while polling is paused.",
		}),
	}
	for _, c := range model.Categories {
		m.AlertsSent.WithLabelValues(string(c))
		m.FetchErrors.WithLabelValues(string(c))
	}
	return m
}

// SetPaused mirrors the pause flag into the gauge.
func (m *Metrics) SetPaused(paused bool) {
	if paused {
		m.Paused.Set(1)
		return
	}
	m.Paused.Set(0)
}
