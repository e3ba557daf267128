package harvest

import (
	"encoding/json"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
)

// AssetRef points at one downloadable document of an item.
type AssetRef struct {
	URL      string
	Owner    string
	FileName string
}

// Key is the deterministic object name for the asset.
func (a AssetRef) Key() string {
	return a.Owner + "_" + a.FileName
}

// DiscoverAssets walks every item of every day, in date order, and emits one
// reference per document carrying string url and fileName fields. Items
// without a string applicationNum or a documents array are skipped.
func DiscoverAssets(days *batch.Collection[DayRecord]) []AssetRef {
	var refs []AssetRef
	days.Each(func(_ string, rec DayRecord) {
		for _, raw := range rec.Items {
			refs = append(refs, itemAssets(raw)...)
		}
	})
	return refs
}

func itemAssets(raw json.RawMessage) []AssetRef {
	var item map[string]json.RawMessage
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil
	}
	var owner string
	if !decodeString(item["applicationNum"], &owner) {
		return nil
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(item["documents"], &docs); err != nil || docs == nil {
		return nil
	}
	refs := make([]AssetRef, 0, len(docs))
	for _, d := range docs {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(d, &doc); err != nil {
			continue
		}
		var ref AssetRef
		if !decodeString(doc["url"], &ref.URL) || !decodeString(doc["fileName"], &ref.FileName) {
			continue
		}
		ref.Owner = owner
		refs = append(refs, ref)
	}
	return refs
}

// decodeString succeeds only for a JSON string; null and other kinds fail.
func decodeString(raw json.RawMessage, dst *string) bool {
	if len(raw) == 0 || raw[0] != '"' {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
