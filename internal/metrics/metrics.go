package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the application counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reportsCreated      prometheus.Counter
	classifierFallbacks prometheus.Counter
	geocoderFailures    prometheus.Counter
	notifications       *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	statusUpdates       *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reportsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "wateralert_reports_created_total",
			Help: "Leak reports committed to the store.",
		}),
		classifierFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "wateralert_classifier_fallbacks_total",
			Help: "Photo analyses served by the simulated classifier after a failure.",
		}),
		geocoderFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "wateralert_geocoder_failures_total",
			Help: "Reverse geocoding calls that ended with a placeholder address.",
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wateralert_notifications_total",
			Help: "Status notifications by delivery result.",
		}, []string{"result"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "wateralert_active_sessions",
			Help: "Reporters with a conversation in progress.",
		}),
		statusUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wateralert_status_updates_total",
			Help: "Successful operator status updates by new status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) ReportCreated() {
	if m != nil {
		m.reportsCreated.Inc()
	}
}

func (m *Metrics) ClassifierFallback() {
	if m != nil {
		m.classifierFallbacks.Inc()
	}
}

func (m *Metrics) GeocoderFailure() {
	if m != nil {
		m.geocoderFailures.Inc()
	}
}

// Notification records a delivery attempt, result is "sent" or "failed".
func (m *Metrics) Notification(result string) {
	if m != nil {
		m.notifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SetActiveSessions(n int) {
	if m != nil {
		m.activeSessions.Set(float64(n))
	}
}

func (m *Metrics) StatusUpdated(status string) {
	if m != nil {
		m.statusUpdates.WithLabelValues(status).Inc()
	}
}
