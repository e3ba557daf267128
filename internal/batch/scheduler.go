package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/trademark-harvester/internal/metrics"
	"github.com/JakeFAU/trademark-harvester/internal/progress"
)

// Config describes one pass.
//   - Pass: label used in logs, metrics and progress events.
//   - Concurrency: batch size P, the cap on units in flight.
//   - Delay: fixed pause between consecutive batches.
type Config struct {
	Pass        string
	Concurrency int
	Delay       time.Duration
}

// Validate reports configuration errors that make a pass impossible.
func (c Config) Validate() error {
	if c.Pass == "" {
		return errors.New("pass name is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.Delay < 0 {
		return fmt.Errorf("batch delay must be >= 0, got %s", c.Delay)
	}
	return nil
}

// Summary totals a finished (or interrupted) pass.
type Summary struct {
	Pass      string        `json:"pass"`
	Batches   int           `json:"batches"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Duration  time.Duration `json:"duration"`
}

// Failed is the number of units that produced a Failure.
func (s Summary) Failed() int {
	return s.Attempted - s.Succeeded
}

// Task executes one unit. It must translate every error into a Failure outcome.
type Task[I, V any] func(ctx context.Context, item I) Outcome[V]

// Scheduler drives passes for a single run.
type Scheduler struct {
	runID    uuid.UUID
	reporter progress.Reporter
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// NewScheduler builds a Scheduler. reporter may be nil.
func NewScheduler(runID uuid.UUID, reporter progress.Reporter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	return &Scheduler{
		runID:    runID,
		reporter: reporter,
		logger:   logger,
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// RunID identifies the run this scheduler reports for.
func (s *Scheduler) RunID() uuid.UUID {
	return s.runID
}

// Split partitions items into consecutive batches of at most size elements.
// Concatenating the result reproduces items. size < 1 is treated as 1.
func Split[I any](items []I, size int) [][]I {
	if size < 1 {
		size = 1
	}
	batches := make([][]I, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}

// Run executes task for every item, batch by batch, merging successes into
// into. The pass stops early only when ctx is cancelled, in which case the
// partial summary and ctx.Err() are returned.
func Run[I, V any](
	ctx context.Context,
	s *Scheduler,
	cfg Config,
	items []I,
	task Task[I, V],
	into *Collection[V],
) (Summary, error) {
	summary := Summary{Pass: cfg.Pass}
	if err := cfg.Validate(); err != nil {
		return summary, fmt.Errorf("validate pass config: %w", err)
	}
	batches := Split(items, cfg.Concurrency)
	summary.Batches = len(batches)
	logger := s.logger.With(zap.String("pass", cfg.Pass), zap.String("run_id", s.runID.String()))
	logger.Info("pass started",
		zap.Int("units", len(items)),
		zap.Int("batches", len(batches)),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Duration("batch_delay", cfg.Delay),
	)

	start := s.now()
	for i, chunk := range batches {
		if err := ctx.Err(); err != nil {
			summary.Duration = s.now().Sub(start)
			return summary, fmt.Errorf("pass %s interrupted before batch %d: %w", cfg.Pass, i+1, err)
		}

		batchStart := s.now()
		outcomes := runBatch(ctx, cfg.Pass, chunk, task)
		for _, o := range outcomes {
			metrics.ObserveUnit(cfg.Pass, o.OK())
			if !o.OK() {
				logger.Warn("unit failed", zap.String("key", o.Key), zap.String("reason", o.Reason()))
			}
		}
		summary.Attempted += len(outcomes)
		summary.Succeeded += into.Merge(outcomes)

		if s.reporter != nil {
			s.reporter.Report(progress.Event{
				RunID:     s.runID,
				Pass:      cfg.Pass,
				TS:        s.now().UTC(),
				Batch:     i + 1,
				Batches:   len(batches),
				Attempted: summary.Attempted,
				Succeeded: summary.Succeeded,
				Dur:       s.now().Sub(batchStart),
			})
		}

		if i < len(batches)-1 && cfg.Delay > 0 {
			if err := s.sleep(ctx, cfg.Delay); err != nil {
				summary.Duration = s.now().Sub(start)
				return summary, fmt.Errorf("pass %s interrupted after batch %d: %w", cfg.Pass, i+1, err)
			}
		}
	}
	summary.Duration = s.now().Sub(start)

	logger.Info("pass finished",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed()),
		zap.Duration("elapsed", summary.Duration),
	)
	return summary, nil
}

// runBatch launches one goroutine per item and waits for all of them. Each
// goroutine owns exactly one slot of the result slice.
func runBatch[I, V any](ctx context.Context, pass string, chunk []I, task Task[I, V]) []Outcome[V] {
	outcomes := make([]Outcome[V], len(chunk))
	var g errgroup.Group
	for idx, item := range chunk {
		g.Go(func() error {
			release := metrics.UnitStarted(pass)
			defer release()
			outcomes[idx] = task(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
