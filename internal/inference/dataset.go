package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// Entry is one row of the cleaned dataset. Fields other than the image name
// and the label are ignored.
type Entry struct {
	ImageName        string  `json:"imageName"`
	ChineseCharacter *string `json:"chineseCharacter"`
}

// LoadDataset reads a JSON array of entries from path.
func LoadDataset(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return entries, nil
}
