// Package metrics は HTTP / gRPC 両方から使う Prometheus コレクタをまとめる。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the request collectors shared by every transport.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Items    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New は reg にコレクタを登録する。テストでは prometheus.NewRegistry() を渡す。
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todo",
			Name:      "requests_total",
			Help:      "Number of handled requests by transport, operation and result code.",
		}, []string{"transport", "operation", "code"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "todo",
			Name:      "request_duration_seconds",
			Help:      "Request latency by transport and operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "operation"}),
		Items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "todo",
			Name:      "items",
			Help:      "Number of todos in the store after the last request.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Requests, m.Latency, m.Items)
	return m
}

// Observe records one finished request.
func (m *Metrics) Observe(transport, operation, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(transport, operation, code).Inc()
	m.Latency.WithLabelValues(transport, operation).Observe(d.Seconds())
}

// SetItems は最新のコレクション件数を反映する。
func (m *Metrics) SetItems(n int) {
	if m == nil {
		return
	}
	m.Items.Set(float64(n))
}

// Handler は /metrics 用の http.Handler。nil のときはデフォルトレジストリを出す。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
