package harvest

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DayRecord is the decoded payload for one lodgement date. Items are kept as
// raw JSON so the artifact reproduces them exactly.
type DayRecord struct {
	Count int
	Items []json.RawMessage
}

type dayPayload struct {
	LodgementDate *string            `json:"lodgement_date"`
	Count         *int               `json:"count"`
	Items         *[]json.RawMessage `json:"items"`
}

// decodeDay requires an object with a lodgement date, a non-negative integer
// count and an items array.
func decodeDay(body []byte) (DayRecord, error) {
	var p dayPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return DayRecord{}, fmt.Errorf("unmarshal day payload: %w", err)
	}
	if p.LodgementDate == nil {
		return DayRecord{}, errors.New("missing field lodgement_date")
	}
	if p.Count == nil {
		return DayRecord{}, errors.New("missing field count")
	}
	if *p.Count < 0 {
		return DayRecord{}, fmt.Errorf("negative count %d", *p.Count)
	}
	if p.Items == nil {
		return DayRecord{}, errors.New("missing field items")
	}
	return DayRecord{Count: *p.Count, Items: *p.Items}, nil
}
