package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
	"github.com/JakeFAU/trademark-harvester/internal/inference"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Describe dataset images with the local inference endpoint",
		Long: `Loads the cleaned dataset, skips entries without a label or an image,
shuffles the rest with a fixed seed, and posts up to --max images to
<inference.base_url>/invoke in batches. Each answer is logged next to the
dataset label.`,
		RunE: runExtract,
	}
	f := cmd.Flags()
	f.String("base-url", "", "inference endpoint base (default http://localhost:1234)")
	f.String("dataset", "", "cleaned dataset (default python/dset/cleaned_data.json)")
	f.String("images-dir", "", "image directory (default python/dset/imgs)")
	f.Int("max", 0, "maximum images processed after the shuffle (default 10000)")
	f.Int64("seed", 0, "shuffle seed (default 42)")
	f.IntP("concurrency", "p", 0, "requests per batch (default 10)")
	f.StringP("output", "o", "", "optional JSON results file")
	bindFlag(cmd, "base-url", "inference.base_url")
	bindFlag(cmd, "dataset", "inference.dataset")
	bindFlag(cmd, "images-dir", "inference.images_dir")
	bindFlag(cmd, "max", "inference.max_processed")
	bindFlag(cmd, "seed", "inference.seed")
	bindFlag(cmd, "concurrency", "inference.concurrency")
	bindFlag(cmd, "output", "inference.output")
	return cmd
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := a.Config().Inference

	client, err := inference.NewClient(a.Fetcher(), cfg.BaseURL, a.Logger())
	if err != nil {
		return err
	}
	runner, err := inference.NewRunner(a.Scheduler(), client, a.Logger())
	if err != nil {
		return err
	}
	summary, err := runner.Run(ctx, inference.RunOptions{
		Dataset:   cfg.Dataset,
		ImagesDir: cfg.ImagesDir,
		Options:   inference.Options{Seed: cfg.Seed, MaxProcessed: cfg.MaxProcessed},
		Pass:      batch.Config{Concurrency: cfg.Concurrency, Delay: cfg.BatchDelay},
		Output:    cfg.Output,
	})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	return printReport(cmd, a, summary)
}
