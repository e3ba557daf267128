package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
	"github.com/JakeFAU/trademark-harvester/internal/config"
)

// Pass names reported in logs, metrics and progress events.
const (
	PassDays   = "days"
	PassAssets = "assets"
)

// NotifyTopic labels the run-complete notification.
const NotifyTopic = "harvest.completed"

// Exporter persists harvested days in addition to the artifact.
type Exporter interface {
	ExportDays(ctx context.Context, runID string, entries []Entry) error
}

// Notifier publishes the run summary. Publishers in internal/publisher satisfy it.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Options describe one harvest run.
type Options struct {
	Start      time.Time
	End        time.Time
	StrideDays int
	Days       batch.Config
	Output     string
	Assets     bool
	AssetsPass batch.Config
}

// Report summarises a finished run.
type Report struct {
	RunID   string         `json:"run_id"`
	Start   string         `json:"start_date"`
	End     string         `json:"end_date"`
	Output  string         `json:"output"`
	Days    batch.Summary  `json:"days"`
	Items   int            `json:"items"`
	Assets  *batch.Summary `json:"assets,omitempty"`
	Elapsed time.Duration  `json:"elapsed"`
}

// Harvester wires the passes of a run together.
type Harvester struct {
	scheduler *batch.Scheduler
	days      *DayFetcher
	assets    *AssetDownloader
	exporter  Exporter
	notifier  Notifier
	logger    *zap.Logger
}

// Option configures optional collaborators.
type Option func(*Harvester)

// WithAssets enables the download pass.
func WithAssets(d *AssetDownloader) Option {
	return func(h *Harvester) { h.assets = d }
}

// WithExporter adds a secondary sink for harvested days.
func WithExporter(e Exporter) Option {
	return func(h *Harvester) { h.exporter = e }
}

// WithNotifier publishes a Report once the run completes.
func WithNotifier(n Notifier) Option {
	return func(h *Harvester) { h.notifier = n }
}

// NewHarvester builds a Harvester around the mandatory day fetcher.
func NewHarvester(scheduler *batch.Scheduler, days *DayFetcher, logger *zap.Logger, opts ...Option) (*Harvester, error) {
	if scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	if days == nil {
		return nil, errors.New("day fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Harvester{scheduler: scheduler, days: days, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Run fetches every date in the window, writes the artifact and, when
// enabled, downloads the referenced assets. A cancelled context stops the run
// between batches and no artifact is written.
func (h *Harvester) Run(ctx context.Context, opts Options) (Report, error) {
	started := time.Now()
	report := Report{
		RunID:  h.scheduler.RunID().String(),
		Start:  opts.Start.Format(config.DateLayout),
		End:    opts.End.Format(config.DateLayout),
		Output: opts.Output,
	}
	if opts.Output == "" {
		return report, errors.New("output path is required")
	}
	if opts.Assets && h.assets == nil {
		return report, errors.New("asset download requested without a downloader")
	}
	dates, err := EnumerateDates(opts.Start, opts.End, opts.StrideDays)
	if err != nil {
		return report, fmt.Errorf("enumerate dates: %w", err)
	}

	dayCfg := opts.Days
	dayCfg.Pass = PassDays
	days := batch.NewCollection[DayRecord]()
	report.Days, err = batch.Run(ctx, h.scheduler, dayCfg, dates, h.days.Fetch, days)
	if err != nil {
		return report, fmt.Errorf("harvest days: %w", err)
	}

	entries := Entries(days)
	for _, e := range entries {
		report.Items += len(e.Items)
	}
	if err := WriteArtifact(opts.Output, entries); err != nil {
		return report, err
	}
	h.logger.Info("artifact written",
		zap.String("path", opts.Output),
		zap.Int("days", len(entries)),
		zap.Int("items", report.Items),
	)

	if h.exporter != nil {
		if err := h.exporter.ExportDays(ctx, report.RunID, entries); err != nil {
			return report, fmt.Errorf("export days: %w", err)
		}
	}

	if opts.Assets {
		summary, err := h.DownloadAssets(ctx, days, opts.AssetsPass)
		report.Assets = &summary
		if err != nil {
			return report, err
		}
	}

	report.Elapsed = time.Since(started)
	h.notify(ctx, report)
	return report, nil
}

// DownloadAssets runs the download pass over every document referenced by days.
func (h *Harvester) DownloadAssets(ctx context.Context, days *batch.Collection[DayRecord], cfg batch.Config) (batch.Summary, error) {
	if h.assets == nil {
		return batch.Summary{Pass: PassAssets}, errors.New("asset downloader is not configured")
	}
	refs := uniqueRefs(DiscoverAssets(days))
	h.logger.Info("assets discovered", zap.Int("assets", len(refs)))

	cfg.Pass = PassAssets
	stored := batch.NewCollection[Asset]()
	summary, err := batch.Run(ctx, h.scheduler, cfg, refs, h.assets.Download, stored)
	if err != nil {
		return summary, fmt.Errorf("download assets: %w", err)
	}
	skipped := 0
	stored.Each(func(_ string, a Asset) {
		if a.Skipped {
			skipped++
		}
	})
	h.logger.Info("assets stored",
		zap.Int("present", stored.Len()),
		zap.Int("skipped_existing", skipped),
	)
	return summary, nil
}

func (h *Harvester) notify(ctx context.Context, report Report) {
	if h.notifier == nil {
		return
	}
	id, err := h.notifier.Publish(ctx, NotifyTopic, report)
	if err != nil {
		h.logger.Warn("run notification failed", zap.Error(err))
		return
	}
	h.logger.Info("run notification published", zap.String("message_id", id))
}

// uniqueRefs drops repeated keys so two units never write the same object in
// one batch. The first reference for a key wins.
func uniqueRefs(refs []AssetRef) []AssetRef {
	seen := make(map[string]struct{}, len(refs))
	out := refs[:0:0]
	for _, r := range refs {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out
}
