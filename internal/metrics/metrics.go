// Package metrics provides Prometheus metrics for the capture pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	previewActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "preview",
		Name:      "active",
		Help:      "Whether a repeating preview session is active (0 or 1)",
	})

	previewStarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "preview",
		Name:      "starts_total",
		Help:      "Successful preview starts",
	})

	previewFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "preview",
		Name:      "failures_total",
		Help:      "Failed preview starts by error code",
	}, []string{"code"})

	deviceDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "device",
		Name:      "disconnects_total",
		Help:      "Device disconnect notifications",
	})

	deviceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "device",
		Name:      "errors_total",
		Help:      "Device error notifications",
	})

	sessionStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "session",
		Name:      "state_notifications_total",
		Help:      "Session state notifications by state",
	}, []string{"state"})
)

// SetPreviewActive records whether a preview session is currently active.
func SetPreviewActive(active bool) {
	if active {
		previewActive.Set(1)
	} else {
		previewActive.Set(0)
	}
}

// IncPreviewStart counts a successful preview start.
func IncPreviewStart() {
	previewStarts.Inc()
}

// IncPreviewFailure counts a failed preview start by error code.
func IncPreviewFailure(code string) {
	previewFailures.WithLabelValues(code).Inc()
}

// IncDeviceDisconnect counts a device disconnect notification.
func IncDeviceDisconnect() {
	deviceDisconnects.Inc()
}

// IncDeviceError counts a device error notification.
func IncDeviceError() {
	deviceErrors.Inc()
}

// IncSessionState counts a session ready/active notification.
func IncSessionState(state string) {
	sessionStates.WithLabelValues(state).Inc()
}
