package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
)

// Entry is one element of the output artifact.
type Entry struct {
	Date  string            `json:"date"`
	Count int               `json:"count"`
	Items []json.RawMessage `json:"items"`
}

// Entries flattens the collection into artifact entries ordered by date.
func Entries(days *batch.Collection[DayRecord]) []Entry {
	entries := make([]Entry, 0, days.Len())
	days.Each(func(date string, rec DayRecord) {
		items := rec.Items
		if items == nil {
			items = []json.RawMessage{}
		}
		entries = append(entries, Entry{Date: date, Count: rec.Count, Items: items})
	})
	return entries
}

// WriteArtifact writes entries as an indented JSON array. The file is
// replaced atomically.
func WriteArtifact(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	// #nosec G302 -- the artifact is meant to be read by other tools.
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// ReadArtifact loads a previously written artifact back into a collection.
// Duplicate dates resolve to the last occurrence.
func ReadArtifact(path string) (*batch.Collection[DayRecord], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	days := batch.NewCollection[DayRecord]()
	for _, e := range entries {
		days.Put(e.Date, DayRecord{Count: e.Count, Items: e.Items})
	}
	return days, nil
}
