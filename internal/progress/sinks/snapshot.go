package sinks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/trademark-harvester/internal/progress"
)

// PassStatus is the latest known state of one pass.
type PassStatus struct {
	RunID       string    `json:"run_id"`
	Pass        string    `json:"pass"`
	Batch       int       `json:"batch"`
	Batches     int       `json:"batches"`
	Percent     float64   `json:"percent"`
	Attempted   int       `json:"attempted"`
	Succeeded   int       `json:"succeeded"`
	SuccessRate float64   `json:"success_rate"`
	Done        bool      `json:"done"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SnapshotSink keeps the most recent event per pass in memory.
type SnapshotSink struct {
	mu     sync.RWMutex
	passes map[string]PassStatus
}

// NewSnapshotSink returns an empty SnapshotSink.
func NewSnapshotSink() *SnapshotSink {
	return &SnapshotSink{passes: make(map[string]PassStatus)}
}

// Consume records the latest event for every pass in the batch.
func (s *SnapshotSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.passes[evt.Pass] = PassStatus{
			RunID:       evt.RunID.String(),
			Pass:        evt.Pass,
			Batch:       evt.Batch,
			Batches:     evt.Batches,
			Percent:     evt.Percent(),
			Attempted:   evt.Attempted,
			Succeeded:   evt.Succeeded,
			SuccessRate: evt.SuccessRate(),
			Done:        evt.Done(),
			UpdatedAt:   evt.TS,
		}
	}
	return nil
}

// Snapshot returns every known pass ordered by name.
func (s *SnapshotSink) Snapshot() []PassStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PassStatus, 0, len(s.passes))
	for _, st := range s.passes {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pass < out[j].Pass })
	return out
}

// Close implements the Sink interface; it performs no action.
func (s *SnapshotSink) Close(context.Context) error {
	return nil
}
