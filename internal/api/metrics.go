package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/ha-discovery/internal/discovery"
)

const metricsNamespace = "hadiscovery"

// metrics holds the server's Prometheus registry. Scan and hub figures
// are read at scrape time; request counts are accumulated by middleware.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

func newMetrics(s *Server) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		m.requests,
		&scanCollector{server: s},
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observe(method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	devicesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "devices"),
		"Devices in the registry.", nil, nil)
	scanningDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "scan", "in_progress"),
		"1 while a discovery scan is running.", nil, nil)
	lastMessagesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "scan", "last_messages"),
		"Discovery messages seen by the last finished scan.", nil, nil)
	lastDurationDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "scan", "last_duration_seconds"),
		"Duration of the last finished scan.", nil, nil)
	lastResultDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "scan", "last_result"),
		"1 for the result of the last finished scan.", []string{"result"}, nil)
	wsClientsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "websocket", "clients"),
		"Connected WebSocket clients.", nil, nil)
)

// scanCollector reports the discovery scan state and hub size.
type scanCollector struct {
	server *Server
}

func (c *scanCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- devicesDesc
	ch <- scanningDesc
	ch <- lastMessagesDesc
	ch <- lastDurationDesc
	ch <- lastResultDesc
	ch <- wsClientsDesc
}

func (c *scanCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.server.discovery.ScanState()

	scanning := 0.0
	if st.Status == discovery.ScanScanning {
		scanning = 1
	}
	ch <- prometheus.MustNewConstMetric(devicesDesc, prometheus.GaugeValue, float64(st.Devices))
	ch <- prometheus.MustNewConstMetric(scanningDesc, prometheus.GaugeValue, scanning)
	ch <- prometheus.MustNewConstMetric(lastMessagesDesc, prometheus.GaugeValue, float64(st.LastMessages))

	if d, err := time.ParseDuration(st.LastDuration); err == nil {
		ch <- prometheus.MustNewConstMetric(lastDurationDesc, prometheus.GaugeValue, d.Seconds())
	}
	if st.LastResult != "" {
		ch <- prometheus.MustNewConstMetric(lastResultDesc, prometheus.GaugeValue, 1, string(st.LastResult))
	}

	ch <- prometheus.MustNewConstMetric(wsClientsDesc, prometheus.GaugeValue, float64(c.server.Hub().ClientCount()))
}
