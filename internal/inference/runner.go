package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
)

// Pass is the name reported for the inference pass.
const Pass = "inference"

// RunOptions describe one extraction run.
type RunOptions struct {
	Dataset   string
	ImagesDir string
	Options   Options
	Pass      batch.Config
	// Output, when set, receives the results as a JSON array.
	Output string
}

// Record pairs an answer with the dataset label it should match.
type Record struct {
	ImageName string `json:"imageName"`
	Original  string `json:"original"`
	Result    Result `json:"result"`
}

// Runner drives the inference pass.
type Runner struct {
	scheduler *batch.Scheduler
	client    *Client
	logger    *zap.Logger
}

// NewRunner builds a Runner.
func NewRunner(scheduler *batch.Scheduler, client *Client, logger *zap.Logger) (*Runner, error) {
	if scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	if client == nil {
		return nil, errors.New("inference client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{scheduler: scheduler, client: client, logger: logger}, nil
}

// Run loads the dataset, enumerates the eligible items, describes them in
// batches and logs every answer next to its label.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (batch.Summary, error) {
	entries, err := LoadDataset(opts.Dataset)
	if err != nil {
		return batch.Summary{Pass: Pass}, err
	}
	items, err := Enumerate(entries, opts.ImagesDir, opts.Options, r.logger)
	if err != nil {
		return batch.Summary{Pass: Pass}, err
	}
	r.logger.Info("dataset enumerated",
		zap.Int("entries", len(entries)),
		zap.Int("eligible", len(items)),
		zap.String("endpoint", r.client.Endpoint()),
	)

	labels := make(map[string]string, len(items))
	for _, it := range items {
		labels[it.ImageName] = it.Label()
	}

	cfg := opts.Pass
	cfg.Pass = Pass
	results := batch.NewCollection[Result]()
	summary, err := batch.Run(ctx, r.scheduler, cfg, items, r.client.Describe, results)
	if err != nil {
		return summary, fmt.Errorf("describe images: %w", err)
	}

	records := make([]Record, 0, results.Len())
	results.Each(func(image string, res Result) {
		rec := Record{ImageName: image, Original: labels[image], Result: res}
		r.logger.Info("inference result",
			zap.String("image", image),
			zap.String("chinese_character", deref(res.ChineseCharacter)),
			zap.String("words_in_mark", deref(res.WordsInMark)),
			zap.String("descr_of_device", deref(res.DescrOfDevice)),
			zap.String("original", rec.Original),
		)
		records = append(records, rec)
	})

	if opts.Output != "" {
		if err := writeRecords(opts.Output, records); err != nil {
			return summary, err
		}
		r.logger.Info("results written", zap.String("path", opts.Output), zap.Int("records", len(records)))
	}
	return summary, nil
}

func deref(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

func writeRecords(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- results are meant to be shared
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
