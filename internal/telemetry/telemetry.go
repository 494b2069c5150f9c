package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KevinKickass/HomeGateway/internal/helios"
)

// Collector receives mailbox and poll telemetry. It extends helios.Observer
// so a collector can be installed on the mailbox directly.
type Collector interface {
	helios.Observer
	ObservePoll(summary helios.Summary, at time.Time)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) ObserveExchange(string, helios.Status, time.Duration) {}
func (noopCollector) ObserveMailboxWait(time.Duration)                     {}
func (noopCollector) ObservePoll(helios.Summary, time.Time)                {}

// PrometheusCollector exposes mailbox telemetry via Prometheus.
type PrometheusCollector struct {
	exchanges    *prometheus.CounterVec
	exchangeTime *prometheus.HistogramVec
	mailboxWait  prometheus.Histogram
	pollResults  *prometheus.GaugeVec
	lastPoll     prometheus.Gauge
}

// NewPrometheusCollector registers the metrics with reg. Metrics that are
// already registered are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	exchanges, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homegateway_helios_exchanges_total",
		Help: "Mailbox exchanges by operation and resulting status.",
	}, []string{"op", "status"}))
	if err != nil {
		return nil, err
	}

	exchangeTime, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "homegateway_helios_exchange_seconds",
		Help:    "Duration of mailbox exchanges including lock wait and settle delay.",
		Buckets: []float64{.05, .1, .2, .25, .3, .5, 1, 2, 5, 10},
	}, []string{"op"}))
	if err != nil {
		return nil, err
	}

	mailboxWait, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "homegateway_helios_mailbox_wait_seconds",
		Help:    "Time spent waiting for the mailbox lock.",
		Buckets: prometheus.ExponentialBuckets(.001, 4, 8),
	}))
	if err != nil {
		return nil, err
	}

	pollResults, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "homegateway_helios_poll_parameters",
		Help: "Parameters per status in the last full read.",
	}, []string{"status"}))
	if err != nil {
		return nil, err
	}

	lastPoll, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "homegateway_helios_last_poll_timestamp_seconds",
		Help: "Unix time of the last completed full read.",
	}))
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		exchanges:    exchanges,
		exchangeTime: exchangeTime,
		mailboxWait:  mailboxWait,
		pollResults:  pollResults,
		lastPoll:     lastPoll,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (p *PrometheusCollector) ObserveExchange(op string, status helios.Status, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.exchanges.WithLabelValues(op, status.String()).Inc()
	p.exchangeTime.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (p *PrometheusCollector) ObserveMailboxWait(elapsed time.Duration) {
	if p == nil {
		return
	}
	p.mailboxWait.Observe(elapsed.Seconds())
}

// ObservePoll replaces the per-status counts of the previous full read.
func (p *PrometheusCollector) ObservePoll(summary helios.Summary, at time.Time) {
	if p == nil {
		return
	}
	for _, st := range helios.Statuses {
		p.pollResults.WithLabelValues(st.String()).Set(float64(summary[st]))
	}
	p.lastPoll.Set(float64(at.Unix()))
}
