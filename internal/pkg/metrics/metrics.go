package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "tibber"
	subsystem = "price_alert"
)

// Metrics are registered on their own registry so tests can build as many as they like.
type Metrics struct {
	Registry          *prometheus.Registry
	Ticks             *prometheus.CounterVec
	TickDuration      prometheus.Histogram
	Notifications     *prometheus.CounterVec
	SinkFailures      *prometheus.CounterVec
	CheapestPrice     prometheus.Gauge
	CheapestStartsAt  prometheus.Gauge
	SkippedRecords    prometheus.Counter
	LastTickTimestamp prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ticks_total",
			Help:      "Price checks by outcome",
		}, []string{"outcome"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tick_duration_seconds",
			Help:      "Duration of a full price check",
			Buckets:   prometheus.DefBuckets,
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Notifications sent per sink",
		}, []string{"sink"}),
		SinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_failures_total",
			Help:      "Failed notification deliveries per sink",
		}, []string{"sink"}),
		CheapestPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cheapest_price_per_kwh",
			Help:      "Total price of today's cheapest hour",
		}),
		CheapestStartsAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cheapest_starts_at_seconds",
			Help:      "Unix time at which today's cheapest hour starts",
		}),
		SkippedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "skipped_records_total",
			Help:      "Price records ignored because their total was not a number",
		}),
		LastTickTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_tick_timestamp_seconds",
			Help:      "Unix time of the last finished price check",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Ticks,
		m.TickDuration,
		m.Notifications,
		m.SinkFailures,
		m.CheapestPrice,
		m.CheapestStartsAt,
		m.SkippedRecords,
		m.LastTickTimestamp,
	)
	return m
}
