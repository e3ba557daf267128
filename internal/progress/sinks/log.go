package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/progress"
)

// LogSink writes one line per completed batch.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("batch complete",
			zap.String("run_id", evt.RunID.String()),
			zap.String("pass", evt.Pass),
			zap.Int("batch", evt.Batch),
			zap.Int("batches", evt.Batches),
			zap.String("progress", formatPercent(evt.Percent())),
			zap.Int("attempted", evt.Attempted),
			zap.Int("succeeded", evt.Succeeded),
			zap.String("success_rate", formatPercent(evt.SuccessRate())),
			zap.Duration("dur", evt.Dur),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
