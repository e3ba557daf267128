package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/app"
	"github.com/JakeFAU/trademark-harvester/internal/batch"
	"github.com/JakeFAU/trademark-harvester/internal/harvest"
)

func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Fetch every date in a window and write the aggregated artifact",
		Long: `Fetches one record set per lodgement date between --start-date and
--end-date in batches of --concurrency requests, writes the successful days
to --output as a JSON array, and optionally downloads every referenced image.`,
		RunE: runHarvest,
	}
	f := cmd.Flags()
	f.StringP("start-date", "s", "", "first lodgement date (YYYY-MM-DD)")
	f.StringP("end-date", "e", "", "last lodgement date (YYYY-MM-DD)")
	f.StringP("output", "o", "", "artifact path (default trademark_data.json)")
	f.IntP("chunk-size", "c", 0, "days between consecutive requests (default 1)")
	f.IntP("concurrency", "p", 0, "requests per batch (default 30)")
	f.BoolP("download-images", "d", false, "download referenced images after the harvest")
	f.String("images-dir", "", "image directory for the local backend (default images)")
	bindFlag(cmd, "start-date", "harvest.start_date")
	bindFlag(cmd, "end-date", "harvest.end_date")
	bindFlag(cmd, "output", "harvest.output")
	bindFlag(cmd, "chunk-size", "harvest.chunk_days")
	bindFlag(cmd, "concurrency", "harvest.concurrency")
	bindFlag(cmd, "download-images", "assets.enabled")
	bindFlag(cmd, "images-dir", "assets.dir")
	return cmd
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := a.Config()
	start, end, err := cfg.Harvest.Window()
	if err != nil {
		return err
	}

	days, err := harvest.NewDayFetcher(a.Fetcher(), cfg.API.BaseURL, cfg.API.DateParam, a.Logger())
	if err != nil {
		return err
	}
	opts := []harvest.Option{}
	if cfg.Assets.Enabled {
		downloader, err := newDownloader(cmd, a)
		if err != nil {
			return err
		}
		opts = append(opts, harvest.WithAssets(downloader))
	}
	exporter, err := a.Exporter(ctx)
	if err != nil {
		return err
	}
	if exporter != nil {
		opts = append(opts, harvest.WithExporter(exporter))
	}
	notifier, err := a.Notifier(ctx)
	if err != nil {
		return err
	}
	opts = append(opts, harvest.WithNotifier(notifier))

	h, err := harvest.NewHarvester(a.Scheduler(), days, a.Logger(), opts...)
	if err != nil {
		return err
	}
	report, err := h.Run(ctx, harvest.Options{
		Start:      start,
		End:        end,
		StrideDays: cfg.Harvest.ChunkDays,
		Days:       batch.Config{Concurrency: cfg.Harvest.Concurrency, Delay: cfg.Harvest.BatchDelay},
		Output:     cfg.Harvest.Output,
		Assets:     cfg.Assets.Enabled,
		AssetsPass: batch.Config{Concurrency: cfg.Assets.Concurrency, Delay: cfg.Assets.BatchDelay},
	})
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	return printReport(cmd, a, report)
}

func newDownloader(cmd *cobra.Command, a *app.App) (*harvest.AssetDownloader, error) {
	store, err := a.OpenBlobStore(cmd.Context(), a.Config().Assets.Dir)
	if err != nil {
		return nil, fmt.Errorf("open asset store: %w", err)
	}
	return harvest.NewAssetDownloader(a.Fetcher(), store, a.Logger())
}

func printReport(cmd *cobra.Command, a *app.App, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	a.Logger().Info("run complete", zap.ByteString("report", data))
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
