// Package dataset turns a raw harvest artifact into the labelled image
// dataset consumed by the inference pass.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/harvest"
	"github.com/JakeFAU/trademark-harvester/internal/storage"
)

// Label fields an entry must carry at least one of.
var labelFields = []string{"descrOfDevice", "chineseCharacter", "wordsInMark"}

// Record is one dataset row: the item's single markIndex object plus imageName.
type Record map[string]json.RawMessage

// ImageName returns the record's image key.
func (r Record) ImageName() string {
	var s string
	_ = json.Unmarshal(r["imageName"], &s)
	return s
}

// Stats counts what happened to each item.
type Stats struct {
	Items            int `json:"items"`
	Invalid          int `json:"invalid"`
	Unlabelled       int `json:"unlabelled"`
	LongDescriptions int `json:"long_descriptions"`
	MissingImages    int `json:"missing_images"`
	Kept             int `json:"kept"`
}

// Cleaner filters harvested items down to labelled entries with a stored image.
type Cleaner struct {
	images   storage.BlobStore
	maxWords int
	logger   *zap.Logger
}

// NewCleaner returns a Cleaner checking images in store. Descriptions longer
// than maxWords are dropped.
func NewCleaner(images storage.BlobStore, maxWords int, logger *zap.Logger) (*Cleaner, error) {
	if images == nil {
		return nil, errors.New("image store is required")
	}
	if maxWords < 1 {
		return nil, fmt.Errorf("max description words must be >= 1, got %d", maxWords)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{images: images, maxWords: maxWords, logger: logger}, nil
}

// Build walks every item of every day in order and returns the kept records.
func (c *Cleaner) Build(ctx context.Context, days []harvest.Entry) ([]Record, Stats, error) {
	var (
		stats   Stats
		records = []Record{}
	)
	for _, day := range days {
		for _, raw := range day.Items {
			stats.Items++
			rec, ok := candidate(raw)
			if !ok {
				stats.Invalid++
				continue
			}
			if unlabelled(rec) {
				stats.Unlabelled++
				continue
			}
			if n := descriptionWords(rec); n > c.maxWords {
				stats.LongDescriptions++
				continue
			}
			name := rec.ImageName()
			exists, err := c.images.Exists(ctx, name)
			if errors.Is(err, storage.ErrInvalidKey) {
				exists, err = false, nil
			}
			if err != nil {
				return nil, stats, fmt.Errorf("check image %s: %w", name, err)
			}
			if !exists {
				stats.MissingImages++
				c.logger.Debug("image missing", zap.String("image", name), zap.String("date", day.Date))
				continue
			}
			records = append(records, rec)
		}
	}
	stats.Kept = len(records)
	return records, stats, nil
}

// Clean reads the raw artifact at rawPath and writes the dataset to outPath.
func (c *Cleaner) Clean(ctx context.Context, rawPath, outPath string) (Stats, error) {
	days, err := harvest.ReadArtifact(rawPath)
	if err != nil {
		return Stats{}, err
	}
	records, stats, err := c.Build(ctx, harvest.Entries(days))
	if err != nil {
		return stats, err
	}
	if err := write(outPath, records); err != nil {
		return stats, err
	}
	c.logger.Info("dataset written",
		zap.String("path", outPath),
		zap.Int("items", stats.Items),
		zap.Int("invalid", stats.Invalid),
		zap.Int("unlabelled", stats.Unlabelled),
		zap.Int("long_descriptions", stats.LongDescriptions),
		zap.Int("missing_images", stats.MissingImages),
		zap.Int("kept", stats.Kept),
	)
	return stats, nil
}

// candidate accepts items with exactly one markIndex entry, exactly one
// document and an application number.
func candidate(raw json.RawMessage) (Record, bool) {
	var item struct {
		ApplicationNum json.RawMessage   `json:"applicationNum"`
		MarkIndex      []json.RawMessage `json:"markIndex"`
		Documents      []struct {
			URL      *string `json:"url"`
			FileName *string `json:"fileName"`
		} `json:"documents"`
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, false
	}
	appNum, ok := applicationNum(item.ApplicationNum)
	if !ok || len(item.MarkIndex) != 1 || len(item.Documents) != 1 {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(item.MarkIndex[0], &rec); err != nil || rec == nil {
		return nil, false
	}
	doc := item.Documents[0]
	var file string
	switch {
	case doc.FileName != nil && *doc.FileName != "":
		file = *doc.FileName
	case doc.URL != nil && *doc.URL != "":
		file = path.Base(*doc.URL)
	default:
		return nil, false
	}
	name, err := json.Marshal(appNum + "_" + file)
	if err != nil {
		return nil, false
	}
	rec["imageName"] = name
	return rec, true
}

func applicationNum(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func unlabelled(rec Record) bool {
	for _, f := range labelFields {
		if v, ok := rec[f]; ok && string(v) != "null" {
			return false
		}
	}
	return true
}

func descriptionWords(rec Record) int {
	var desc *string
	if err := json.Unmarshal(rec["descrOfDevice"], &desc); err != nil || desc == nil {
		return 0
	}
	return len(strings.Split(strings.TrimSpace(*desc), " "))
}

func write(outPath string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dataset dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil { // #nosec G306 -- dataset is read by external tooling
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}
