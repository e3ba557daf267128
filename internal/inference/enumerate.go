package inference

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Options bound the dataset pass.
//   - Seed: shuffle seed, a fixed value gives a reproducible order.
//   - MaxProcessed: cap applied after the shuffle, 0 means no cap.
type Options struct {
	Seed         int64
	MaxProcessed int
}

// Item is an entry whose label is present and whose image exists on disk.
type Item struct {
	Entry
	Path string
}

// Label returns the dataset label.
func (i Item) Label() string {
	if i.ChineseCharacter == nil {
		return ""
	}
	return *i.ChineseCharacter
}

// Enumerate filters entries that have no label or no image, shuffles the
// survivors with a seeded source, then truncates to opts.MaxProcessed.
func Enumerate(entries []Entry, imagesDir string, opts Options, logger *zap.Logger) ([]Item, error) {
	if opts.MaxProcessed < 0 {
		return nil, errors.New("max processed must be >= 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.ChineseCharacter == nil {
			logger.Info("skipping entry without label", zap.String("image", e.ImageName))
			continue
		}
		path := filepath.Join(imagesDir, e.ImageName)
		if _, err := os.Stat(path); err != nil {
			logger.Info("skipping entry without image", zap.String("image", e.ImageName), zap.String("path", path))
			continue
		}
		items = append(items, Item{Entry: e, Path: path})
	}

	rng := rand.New(rand.NewSource(opts.Seed)) // #nosec G404 -- reproducible ordering, not security sensitive
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

	if opts.MaxProcessed > 0 && len(items) > opts.MaxProcessed {
		items = items[:opts.MaxProcessed]
	}
	return items, nil
}
