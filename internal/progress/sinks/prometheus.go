package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/trademark-harvester/internal/progress"
)

// PrometheusSink exports per-pass progress gauges and batch counters.
type PrometheusSink struct {
	batches     *prometheus.CounterVec
	percent     *prometheus.GaugeVec
	attempted   *prometheus.GaugeVec
	succeeded   *prometheus.GaugeVec
	batchLength *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_batches_completed_total",
			Help: "Batches joined and merged, partitioned by pass.",
		}, []string{"pass"}),
		percent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harvester_pass_progress_percent",
			Help: "Share of batches completed in the current pass.",
		}, []string{"pass"}),
		attempted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harvester_pass_units_attempted",
			Help: "Units attempted so far in the current pass.",
		}, []string{"pass"}),
		succeeded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harvester_pass_units_succeeded",
			Help: "Units that succeeded so far in the current pass.",
		}, []string{"pass"}),
		batchLength: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_batch_duration_seconds",
			Help:    "Wall time from batch launch to join.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"pass"}),
	}
	for _, collector := range []prometheus.Collector{
		s.batches,
		s.percent,
		s.attempted,
		s.succeeded,
		s.batchLength,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.batches.WithLabelValues(evt.Pass).Inc()
		s.percent.WithLabelValues(evt.Pass).Set(evt.Percent())
		s.attempted.WithLabelValues(evt.Pass).Set(float64(evt.Attempted))
		s.succeeded.WithLabelValues(evt.Pass).Set(float64(evt.Succeeded))
		if evt.Dur > 0 {
			s.batchLength.WithLabelValues(evt.Pass).Observe(evt.Dur.Seconds())
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
