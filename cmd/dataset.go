package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/trademark-harvester/internal/dataset"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build the labelled image dataset from a raw artifact",
		Long: `Keeps items with exactly one mark index entry, one document and an
application number, at least one label, a short device description, and a
stored image. Writes the surviving mark index entries with their imageName.`,
		RunE: runDataset,
	}
	f := cmd.Flags()
	f.StringP("input", "i", "", "raw artifact (default trademark_data.json)")
	f.StringP("output", "o", "", "dataset path (default python/dset/cleaned_data.json)")
	f.String("images-dir", "", "image directory for the local backend (default images)")
	f.Int("max-words", 0, "longest device description kept, in words (default 10)")
	bindFlag(cmd, "input", "dataset.raw")
	bindFlag(cmd, "output", "dataset.output")
	bindFlag(cmd, "images-dir", "dataset.images_dir")
	bindFlag(cmd, "max-words", "dataset.max_description_words")
	return cmd
}

func runDataset(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := a.Config().Dataset

	images, err := a.OpenBlobStore(ctx, cfg.ImagesDir)
	if err != nil {
		return fmt.Errorf("open image store: %w", err)
	}
	cleaner, err := dataset.NewCleaner(images, cfg.MaxDescriptionWords, a.Logger())
	if err != nil {
		return err
	}
	stats, err := cleaner.Clean(ctx, cfg.Raw, cfg.Output)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	return printReport(cmd, a, stats)
}
