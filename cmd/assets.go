package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
	"github.com/JakeFAU/trademark-harvester/internal/harvest"
)

func newAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Download the images referenced by an existing artifact",
		Long: `Reads a harvest artifact and runs only the download pass. Images
already present in the store are skipped without a request.`,
		RunE: runAssets,
	}
	f := cmd.Flags()
	f.StringP("input", "i", "", "artifact path (default trademark_data.json)")
	f.IntP("concurrency", "p", 0, "downloads per batch (default 30)")
	f.String("images-dir", "", "image directory for the local backend (default images)")
	bindFlag(cmd, "input", "harvest.output")
	bindFlag(cmd, "concurrency", "assets.concurrency")
	bindFlag(cmd, "images-dir", "assets.dir")
	return cmd
}

func runAssets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := a.Config()

	days, err := harvest.ReadArtifact(cfg.Harvest.Output)
	if err != nil {
		return err
	}

	fetcher, err := harvest.NewDayFetcher(a.Fetcher(), cfg.API.BaseURL, cfg.API.DateParam, a.Logger())
	if err != nil {
		return err
	}
	downloader, err := newDownloader(cmd, a)
	if err != nil {
		return err
	}
	h, err := harvest.NewHarvester(a.Scheduler(), fetcher, a.Logger(), harvest.WithAssets(downloader))
	if err != nil {
		return err
	}
	summary, err := h.DownloadAssets(ctx, days, batch.Config{
		Concurrency: cfg.Assets.Concurrency,
		Delay:       cfg.Assets.BatchDelay,
	})
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	return printReport(cmd, a, summary)
}
