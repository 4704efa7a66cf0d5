package imapclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps the Prometheus collectors the engine records into when
// Options.Metrics is set. Pure observation: nothing in the event loop
// branches on a metric's value, matching the teacher's pattern of
// Prometheus middleware that only ever records (misc.EnablePrometheusIntegration).
type Metrics struct {
	CommandsSent     *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	PendingCommands  prometheus.Gauge
	IdleSessions     prometheus.Gauge
	BytesRead        prometheus.Counter
	BytesWritten     prometheus.Counter
}

// NewMetrics constructs a Metrics and registers every collector with reg.
// Pass prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to expose on the process-wide /metrics
// endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imap_commands_sent_total",
			Help: "Number of IMAP commands submitted, by command name.",
		}, []string{"command"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "imap_command_duration_seconds",
			Help: "Time from command submission to its tagged response, by command name and outcome.",
		}, []string{"command", "status"}),
		PendingCommands: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imap_pending_commands",
			Help: "Number of commands awaiting a tagged response.",
		}),
		IdleSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imap_idle_sessions",
			Help: "1 while the connection is idling, 0 otherwise.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imap_bytes_read_total",
			Help: "Total bytes read from the transport.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imap_bytes_written_total",
			Help: "Total bytes written to the transport.",
		}),
	}
	reg.MustRegister(m.CommandsSent, m.CommandDuration, m.PendingCommands, m.IdleSessions, m.BytesRead, m.BytesWritten)
	return m
}
