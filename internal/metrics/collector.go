// Package metrics defines the Prometheus metrics the connection
// orchestrator and poll manager report: active sessions, commands sent,
// poll errors, and notification backpressure drops.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "padctl"
	subsystem = "controller"
)

const labelCodec = "codec"

// Collector holds every padctl Prometheus metric.
type Collector struct {
	// Sessions tracks the number of currently connected sessions (0 or 1
	// per process, since a Controller manages a single treadmill).
	Sessions *prometheus.GaugeVec

	// CommandsSent counts start/stop/set-speed writes per codec.
	CommandsSent *prometheus.CounterVec

	// PollErrors counts every ask-stats write failure observed by the poll
	// manager, per codec; it is a running total and never resets.
	PollErrors *prometheus.CounterVec

	// NotificationsDropped counts inbound status frames dropped by the
	// transport's bounded ring buffer under backpressure.
	NotificationsDropped *prometheus.CounterVec
}

// NewCollector creates a Collector with every metric registered against
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()
	reg.MustRegister(c.Sessions, c.CommandsSent, c.PollErrors, c.NotificationsDropped)
	return c
}

func newMetrics() *Collector {
	codecLabels := []string{labelCodec}

	return &Collector{
		Sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions",
			Help:      "Number of currently connected treadmill sessions.",
		}, codecLabels),

		CommandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_sent_total",
			Help:      "Total start/stop/set-speed commands written to the treadmill.",
		}, codecLabels),

		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "poll_errors_total",
			Help:      "Total ask-stats write failures observed by the poll manager.",
		}, codecLabels),

		NotificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_dropped_total",
			Help:      "Total inbound status frames dropped by the notification ring buffer.",
		}, codecLabels),
	}
}

// RegisterSession increments the sessions gauge for codec.
func (c *Collector) RegisterSession(codec string) {
	c.Sessions.WithLabelValues(codec).Inc()
}

// UnregisterSession decrements the sessions gauge for codec.
func (c *Collector) UnregisterSession(codec string) {
	c.Sessions.WithLabelValues(codec).Dec()
}

// IncCommandsSent increments the commands-sent counter for codec.
func (c *Collector) IncCommandsSent(codec string) {
	c.CommandsSent.WithLabelValues(codec).Inc()
}

// IncPollErrors increments the poll-errors counter for codec.
func (c *Collector) IncPollErrors(codec string) {
	c.PollErrors.WithLabelValues(codec).Inc()
}

// IncNotificationsDropped increments the notifications-dropped counter for
// codec.
func (c *Collector) IncNotificationsDropped(codec string) {
	c.NotificationsDropped.WithLabelValues(codec).Inc()
}
