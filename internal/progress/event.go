package progress

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event describes the state of a pass right after one batch joined.
type Event struct {
	// RunID identifies the process run that produced the event.
	RunID uuid.UUID
	// Pass names the engine pass ("days", "assets", "inference").
	Pass string
	// TS is the UTC time the batch finished merging.
	TS time.Time
	// Batch is the 1-based index of the batch that just completed.
	Batch int
	// Batches is the total number of batches in the pass.
	Batches int
	// Attempted counts units executed so far in the pass.
	Attempted int
	// Succeeded counts units that produced a Success outcome so far.
	Succeeded int
	// Dur is the wall time of the completed batch.
	Dur time.Duration
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.Pass == "" {
		return errors.New("pass is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Batches < 1 || e.Batch < 1 || e.Batch > e.Batches {
		return errors.New("batch index out of range")
	}
	if e.Succeeded < 0 || e.Succeeded > e.Attempted {
		return errors.New("succeeded must be within [0, attempted]")
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// Percent is the share of batches completed, in [0, 100].
func (e Event) Percent() float64 {
	if e.Batches <= 0 {
		return 0
	}
	return float64(e.Batch) * 100 / float64(e.Batches)
}

// SuccessRate is the running share of attempted units that succeeded.
func (e Event) SuccessRate() float64 {
	if e.Attempted <= 0 {
		return 0
	}
	return float64(e.Succeeded) * 100 / float64(e.Attempted)
}

// Failed counts units that produced a Failure outcome so far.
func (e Event) Failed() int {
	return e.Attempted - e.Succeeded
}

// Done reports whether the event closes its pass.
func (e Event) Done() bool {
	return e.Batch == e.Batches
}
