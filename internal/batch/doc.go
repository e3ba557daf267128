// Package batch runs independent units of work in strictly sequential batches
// of bounded size and folds their outcomes into a keyed collection.
//
// A pass is partitioned with Split, each batch is launched concurrently and
// joined, successes are merged by the coordinating goroutine, a progress event
// is reported, and the scheduler sleeps a fixed interval before the next batch.
// Failures never abort a batch or a pass; they are logged and dropped.
package batch
