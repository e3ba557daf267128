// Package progress carries batch-level observations out of the scheduler.
// Reports are handed to a non-blocking Hub which batches them on a background
// goroutine and fans them out to sinks (logs, Prometheus, the status API).
// Nothing in this package feeds back into scheduling or aggregation.
package progress
