package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts gallery mutations. A nil *Metrics is valid and records nothing.
type Metrics struct {
	saved           prometheus.Counter
	evicted         prometheus.Counter
	deleted         prometheus.Counter
	cleanupFailures prometheus.Counter
	captureFailures prometheus.Counter
	dismissals      prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "woundtrack",
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		saved:           counter("photos_saved_total", "Photos written to the gallery."),
		evicted:         counter("photos_evicted_total", "Photos dropped because the gallery was full."),
		deleted:         counter("photos_deleted_total", "Photos removed on request."),
		cleanupFailures: counter("artifact_cleanup_failures_total", "Evicted artifacts that could not be removed from storage."),
		captureFailures: counter("capture_failures_total", "Failed still captures."),
		dismissals:      counter("reminder_dismissals_total", "Daily reminder dismissals."),
	}
	if registerer != nil {
		registerer.MustRegister(m.saved, m.evicted, m.deleted, m.cleanupFailures, m.captureFailures, m.dismissals)
	}
	return m
}

func (m *Metrics) photoSaved() {
	if m != nil {
		m.saved.Inc()
	}
}

func (m *Metrics) photosEvicted(n int) {
	if m != nil && n > 0 {
		m.evicted.Add(float64(n))
	}
}

func (m *Metrics) photoDeleted() {
	if m != nil {
		m.deleted.Inc()
	}
}

func (m *Metrics) cleanupFailed() {
	if m != nil {
		m.cleanupFailures.Inc()
	}
}

func (m *Metrics) captureFailed() {
	if m != nil {
		m.captureFailures.Inc()
	}
}

func (m *Metrics) reminderDismissed() {
	if m != nil {
		m.dismissals.Inc()
	}
}
