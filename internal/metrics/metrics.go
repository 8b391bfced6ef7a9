// Package metrics holds the Prometheus collectors of the guide service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ImportsTotal     *prometheus.CounterVec
	ImportDuration   *prometheus.HistogramVec
	ChannelsImported prometheus.Gauge
	GuideChannels    prometheus.Gauge
	GuideEvents      prometheus.Gauge
	EventsDropped    prometheus.Counter
	NowNextLookups   prometheus.Counter
	RemindersTotal   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry that also
// carries the Go and process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidevault_imports_total",
			Help: "Imports attempted, by kind and result.",
		},
		[]string{"kind", "result"},
	)
	m.ImportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guidevault_import_duration_seconds",
			Help:    "Duration of playlist and guide imports.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	m.ChannelsImported = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guidevault_roster_channels",
		Help: "Channels in the current roster.",
	})
	m.GuideChannels = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guidevault_guide_channels",
		Help: "Channels in the current guide.",
	})
	m.GuideEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guidevault_guide_events",
		Help: "Events in the current guide.",
	})
	m.EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guidevault_events_dropped_total",
		Help: "Events dropped during normalization for missing or inverted times.",
	})
	m.NowNextLookups = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guidevault_now_next_lookups_total",
		Help: "Now/next queries answered.",
	})
	m.RemindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidevault_reminders_total",
			Help: "Reminders by outcome (armed, immediate, cancelled, failed).",
		},
		[]string{"outcome"},
	)
	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guidevault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
	m.RequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guidevault_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ImportsTotal,
		m.ImportDuration,
		m.ChannelsImported,
		m.GuideChannels,
		m.GuideEvents,
		m.EventsDropped,
		m.NowNextLookups,
		m.RemindersTotal,
		m.RequestDuration,
		m.RequestsInFlight,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveImport records one import attempt.
func (m *Metrics) ObserveImport(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ImportsTotal.WithLabelValues(kind, result).Inc()
	m.ImportDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetGuideSize records the size of the published guide and roster.
func (m *Metrics) SetGuideSize(rosterChannels, guideChannels, events int) {
	if m == nil {
		return
	}
	m.ChannelsImported.Set(float64(rosterChannels))
	m.GuideChannels.Set(float64(guideChannels))
	m.GuideEvents.Set(float64(events))
}

// AddDropped counts events discarded by normalization.
func (m *Metrics) AddDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EventsDropped.Add(float64(n))
}

// IncNowNext counts one now/next lookup.
func (m *Metrics) IncNowNext() {
	if m == nil {
		return
	}
	m.NowNextLookups.Inc()
}

// IncReminder counts a reminder outcome.
func (m *Metrics) IncReminder(outcome string) {
	if m == nil {
		return
	}
	m.RemindersTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.RequestsInFlight.Inc()
	return m.RequestsInFlight.Dec
}
