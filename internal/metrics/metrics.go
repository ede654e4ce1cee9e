// Package metrics holds the Prometheus collectors of the compile service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AaronLay10/ScriptGraph/internal/events"
	"github.com/AaronLay10/ScriptGraph/internal/version"
)

// Compile results used as the "result" label.
const (
	ResultOK       = "ok"
	ResultErrors   = "errors"
	ResultRejected = "rejected"
)

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

var startTime = time.Now()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		compileTotal,
		compileDurationSeconds,
		diagnosticsTotal,
		busConnected,
		postgresConnected,
		buildInfo,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scriptgraph_uptime_seconds",
			Help: "Number of seconds since the service started",
		}, func() float64 { return time.Since(startTime).Seconds() }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "scriptgraph_events_total",
			Help: "Total number of events emitted since startup",
		}, func() float64 { return float64(events.TotalCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scriptgraph_events_buffered",
			Help: "Number of events held in the in-memory event buffer",
		}, func() float64 { return float64(events.Buffered()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scriptgraph_ws_clients",
			Help: "Number of active WebSocket client connections",
		}, func() float64 { return float64(events.SubscriberCount()) }),
	)
	buildInfo.WithLabelValues(version.Version).Set(1)
}

var (
	compileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptgraph_compile_total",
			Help: "Total number of compile requests by result and transport",
		},
		[]string{"result", "transport"},
	)

	compileDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scriptgraph_compile_duration_seconds",
			Help:    "Duration of graph compilation in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"transport"},
	)

	diagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptgraph_diagnostics_total",
			Help: "Total number of diagnostics reported by severity",
		},
		[]string{"severity"},
	)

	busConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scriptgraph_mqtt_connected",
		Help: "Whether the MQTT broker is connected (1) or not (0)",
	})

	postgresConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scriptgraph_postgres_connected",
		Help: "Whether PostgreSQL is connected (1) or not (0)",
	})

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scriptgraph_build_info",
			Help: "Build information, always 1",
		},
		[]string{"version"},
	)
)

// ObserveCompile records one finished compile request.
func ObserveCompile(transport, result string, d time.Duration) {
	compileTotal.WithLabelValues(result, transport).Inc()
	if result != ResultRejected {
		compileDurationSeconds.WithLabelValues(transport).Observe(d.Seconds())
	}
}

// ObserveDiagnostics adds n diagnostics of the given severity.
func ObserveDiagnostics(severity string, n int) {
	if n <= 0 {
		return
	}
	diagnosticsTotal.WithLabelValues(severity).Add(float64(n))
}

func SetBusConnected(connected bool) {
	busConnected.Set(boolValue(connected))
}

func SetPostgresConnected(connected bool) {
	postgresConnected.Set(boolValue(connected))
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
