package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the dashboard service.
type Metrics struct {
	registry *prometheus.Registry

	PollsTotal      *prometheus.CounterVec
	PollFailures    *prometheus.CounterVec
	StaleDiscards   *prometheus.CounterVec
	PollDuration    *prometheus.HistogramVec
	CommandsTotal   *prometheus.CounterVec
	EventsInView    prometheus.Gauge
	WatcherRunning  prometheus.Gauge
	HoneypotTrigger prometheus.Gauge
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_polls_total",
			Help: "Total number of poll invocations per poller",
		}, []string{"poller"}),
		PollFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_poll_failures_total",
			Help: "Total number of failed polls per poller",
		}, []string{"poller"}),
		StaleDiscards: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_poll_stale_discards_total",
			Help: "Poll results discarded because a fresher result was already applied",
		}, []string{"poller"}),
		PollDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_poll_duration_seconds",
			Help:    "Backend round trip time per poller",
			Buckets: prometheus.DefBuckets,
		}, []string{"poller"}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_commands_total",
			Help: "Operator commands by name and outcome",
		}, []string{"command", "outcome"}),
		EventsInView: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_events_snapshot_size",
			Help: "Number of events in the current snapshot",
		}),
		WatcherRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_watcher_running",
			Help: "1 when the backend reports an active watcher",
		}),
		HoneypotTrigger: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_honeypot_triggered_events",
			Help: "Honeypot-triggered events in the current snapshot",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCommand records the outcome of one operator command.
func (m *Metrics) ObserveCommand(command string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
}
