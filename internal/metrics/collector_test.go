package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/srg/padctl/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	if c.Sessions == nil {
		t.Error("Sessions is nil")
	}
	if c.CommandsSent == nil {
		t.Error("CommandsSent is nil")
	}
	if c.PollErrors == nil {
		t.Error("PollErrors is nil")
	}
	if c.NotificationsDropped == nil {
		t.Error("NotificationsDropped is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestRegisterUnregisterSession(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RegisterSession("standard")
	if got := gaugeValue(t, c.Sessions, "standard"); got != 1 {
		t.Errorf("after RegisterSession: sessions gauge = %v, want 1", got)
	}

	c.UnregisterSession("standard")
	if got := gaugeValue(t, c.Sessions, "standard"); got != 0 {
		t.Errorf("after UnregisterSession: sessions gauge = %v, want 0", got)
	}
}

func TestIncCommandsSent(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncCommandsSent("ftms")
	c.IncCommandsSent("ftms")

	if got := counterValue(t, c.CommandsSent, "ftms"); got != 2 {
		t.Errorf("CommandsSent = %v, want 2", got)
	}
}

func TestIncPollErrors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncPollErrors("standard")

	if got := counterValue(t, c.PollErrors, "standard"); got != 1 {
		t.Errorf("PollErrors = %v, want 1", got)
	}
}

func TestIncNotificationsDropped(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncNotificationsDropped("standard")
	c.IncNotificationsDropped("standard")
	c.IncNotificationsDropped("standard")

	if got := counterValue(t, c.NotificationsDropped, "standard"); got != 3 {
		t.Errorf("NotificationsDropped = %v, want 3", got)
	}
}

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
