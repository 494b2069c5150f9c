package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/KevinKickass/HomeGateway/internal/helios"
)

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)
	collector.ObserveExchange("read", helios.Good, time.Millisecond)
	collector.ObservePoll(helios.Summary{helios.Good: 3}, time.Now())
}

func TestPrometheusCollectorCountsExchanges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	collector.ObserveExchange("read", helios.Good, 210*time.Millisecond)
	collector.ObserveExchange("read", helios.Good, 205*time.Millisecond)
	collector.ObserveExchange("write", helios.BadCommunicationError, time.Second)
	collector.ObserveMailboxWait(3 * time.Millisecond)

	families := gather(t, reg)

	exchanges := families["homegateway_helios_exchanges_total"]
	require.NotNil(t, exchanges)
	require.Equal(t, 2.0, counterValue(t, exchanges, map[string]string{"op": "read", "status": "Good"}))
	require.Equal(t, 1.0, counterValue(t, exchanges, map[string]string{"op": "write", "status": "BadCommunicationError"}))

	wait := families["homegateway_helios_mailbox_wait_seconds"]
	require.NotNil(t, wait)
	require.Equal(t, uint64(1), wait.Metric[0].Histogram.GetSampleCount())
}

func TestPrometheusCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	again, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, first.exchanges, again.exchanges)

	first.ObserveExchange("read", helios.Good, time.Millisecond)
	again.ObserveExchange("read", helios.Good, time.Millisecond)

	families := gather(t, reg)
	require.Equal(t, 2.0, counterValue(t, families["homegateway_helios_exchanges_total"], map[string]string{"op": "read", "status": "Good"}))
}

func TestObservePoll(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	at := time.Unix(1_700_000_000, 0)
	collector.ObservePoll(helios.Summary{helios.Good: 150, helios.BadDecodingError: 2}, at)

	families := gather(t, reg)
	polls := families["homegateway_helios_poll_parameters"]
	require.NotNil(t, polls)
	require.Len(t, polls.Metric, len(helios.Statuses))
	require.Equal(t, 150.0, gaugeValue(t, polls, map[string]string{"status": "Good"}))
	require.Equal(t, 2.0, gaugeValue(t, polls, map[string]string{"status": "BadDecodingError"}))
	require.Equal(t, 0.0, gaugeValue(t, polls, map[string]string{"status": "BadDeviceFailure"}))

	last := families["homegateway_helios_last_poll_timestamp_seconds"]
	require.Equal(t, float64(at.Unix()), last.Metric[0].Gauge.GetValue())
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	metrics, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(metrics))
	for _, mf := range metrics {
		out[mf.GetName()] = mf
	}
	return out
}

func find(t *testing.T, mf *dto.MetricFamily, labels map[string]string) *dto.Metric {
	t.Helper()
	for _, m := range mf.Metric {
		match := true
		for _, lp := range m.Label {
			if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
				match = false
			}
		}
		if match {
			return m
		}
	}
	t.Fatalf("no %s sample with labels %v", mf.GetName(), labels)
	return nil
}

func counterValue(t *testing.T, mf *dto.MetricFamily, labels map[string]string) float64 {
	return find(t, mf, labels).Counter.GetValue()
}

func gaugeValue(t *testing.T, mf *dto.MetricFamily, labels map[string]string) float64 {
	return find(t, mf, labels).Gauge.GetValue()
}
