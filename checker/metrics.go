package checker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"taskwatch/domain"
)

type passMetrics struct {
	passes           prometheus.Counter
	passFailures     prometheus.Counter
	alerts           *prometheus.CounterVec
	deliveryFailures prometheus.Counter
	passLatency      prometheus.Histogram
}

func newPassMetrics(reg prometheus.Registerer) *passMetrics {
	m := &passMetrics{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskwatch_passes_total",
			Help: "Number of completed evaluation passes",
		}),
		passFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskwatch_pass_failures_total",
			Help: "Number of evaluation passes abandoned on a snapshot read failure",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskwatch_alerts_total",
			Help: "Number of alerts raised, by kind",
		}, []string{"kind"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskwatch_alert_deliveries_failed_total",
			Help: "Number of alerts the sink failed to deliver",
		}),
		passLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskwatch_pass_latency_seconds",
			Help:    "Latency of evaluation passes",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.passes, m.passFailures, m.alerts, m.deliveryFailures, m.passLatency)
	return m
}

func (m *passMetrics) PassDone(alerts []domain.Alert, d time.Duration) {
	m.passes.Inc()
	for _, a := range alerts {
		m.alerts.WithLabelValues(string(a.Kind)).Inc()
	}
	m.passLatency.Observe(d.Seconds())
}

func (m *passMetrics) PassFailed() {
	m.passFailures.Inc()
}

func (m *passMetrics) DeliveryFailed() {
	m.deliveryFailures.Inc()
}
