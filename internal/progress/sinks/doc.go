// Package sinks implements progress consumers: structured logging, Prometheus
// gauges, and an in-memory snapshot served by the status API. Each sink
// satisfies progress.Sink.
package sinks
