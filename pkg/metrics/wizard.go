package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WizardMetrics records step persistence and order lifecycle outcomes.
type WizardMetrics struct {
	saveDuration *prometheus.HistogramVec
	saveSuccess  *prometheus.CounterVec
	saveFailure  *prometheus.CounterVec
	completed    prometheus.Counter
	cancelled    prometheus.Counter
	cleanupRetry prometheus.Counter
}

// NewWizardMetrics registers the wizard metrics on the provided registerer.
func NewWizardMetrics(reg prometheus.Registerer) *WizardMetrics {
	if reg == nil {
		return &WizardMetrics{}
	}
	saveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wizard_step_save_duration_seconds",
		Help:    "Duration of wizard step persistence in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
	saveSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_step_save_success",
		Help: "Successful wizard step saves.",
	}, []string{"step"})
	saveFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_step_save_failure",
		Help: "Failed wizard step saves.",
	}, []string{"step"})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wizard_orders_completed",
		Help: "Orders completed through the wizard.",
	})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wizard_orders_cancelled",
		Help: "Orders cancelled before completion.",
	})
	cleanupRetry := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wizard_cleanup_delete_retries",
		Help: "Background retries of failed cancel deletes.",
	})
	reg.MustRegister(saveDuration, saveSuccess, saveFailure, completed, cancelled, cleanupRetry)
	return &WizardMetrics{
		saveDuration: saveDuration,
		saveSuccess:  saveSuccess,
		saveFailure:  saveFailure,
		completed:    completed,
		cancelled:    cancelled,
		cleanupRetry: cleanupRetry,
	}
}

// ObserveSave records the duration of one step save attempt.
func (m *WizardMetrics) ObserveSave(step string, duration time.Duration) {
	if m == nil || m.saveDuration == nil {
		return
	}
	m.saveDuration.WithLabelValues(normalizeLabel(step)).Observe(duration.Seconds())
}

// IncSaveSuccess increments the success counter for the named step.
func (m *WizardMetrics) IncSaveSuccess(step string) {
	if m == nil || m.saveSuccess == nil {
		return
	}
	m.saveSuccess.WithLabelValues(normalizeLabel(step)).Inc()
}

// IncSaveFailure increments the failure counter for the named step.
func (m *WizardMetrics) IncSaveFailure(step string) {
	if m == nil || m.saveFailure == nil {
		return
	}
	m.saveFailure.WithLabelValues(normalizeLabel(step)).Inc()
}

// IncCompleted counts an order completion.
func (m *WizardMetrics) IncCompleted() {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.Inc()
}

// IncCancelled counts an order cancellation.
func (m *WizardMetrics) IncCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

// IncCleanupRetry counts one background delete retry.
func (m *WizardMetrics) IncCleanupRetry() {
	if m == nil || m.cleanupRetry == nil {
		return
	}
	m.cleanupRetry.Inc()
}

func normalizeLabel(step string) string {
	if step == "" {
		return "unknown"
	}
	return step
}
