// Package metrics описывает Prometheus метрики сервиса постов.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeAccepted метка успешно сохраненного поста
const OutcomeAccepted = "accepted"

// Metrics метрики приема и выдачи постов. Нулевой указатель допустим: все методы ничего не делают.
type Metrics struct {
	registry *prometheus.Registry

	submissions    *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
	uploadBytes    prometheus.Counter
	listSkipped    prometheus.Counter
}

// New создает отдельный реестр с метриками сервиса и метриками Go рантайма
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_submissions_total",
			Help: "Total post submissions by outcome",
		}, []string{"outcome"}),
		submitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postboard_submit_duration_seconds",
			Help:    "Time spent handling a post submission",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postboard_upload_bytes_total",
			Help: "Total attachment bytes written to disk",
		}),
		listSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postboard_list_skipped_total",
			Help: "Stored records skipped during listing because they could not be decoded",
		}),
	}

	registry.MustRegister(
		m.submissions,
		m.submitDuration,
		m.uploadBytes,
		m.listSkipped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry возвращает реестр Prometheus
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSubmission учитывает одну попытку отправки поста
func (m *Metrics) ObserveSubmission(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.submitDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddUploadBytes учитывает байты, записанные во вложения
func (m *Metrics) AddUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

// IncListSkipped учитывает пропущенную при листинге запись
func (m *Metrics) IncListSkipped() {
	if m == nil {
		return
	}
	m.listSkipped.Inc()
}
