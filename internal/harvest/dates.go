package harvest

import (
	"fmt"
	"time"

	"github.com/JakeFAU/trademark-harvester/internal/config"
)

// EnumerateDates lists the dates from start to end inclusive, advancing by
// strideDays. The last date never lies past end.
func EnumerateDates(start, end time.Time, strideDays int) ([]string, error) {
	if strideDays < 1 {
		return nil, fmt.Errorf("stride must be >= 1 day, got %d", strideDays)
	}
	start = truncateDay(start)
	end = truncateDay(end)
	if start.After(end) {
		return nil, fmt.Errorf("start date %s is after end date %s",
			start.Format(config.DateLayout), end.Format(config.DateLayout))
	}
	span := int(end.Sub(start).Hours()/24) + 1
	dates := make([]string, 0, (span+strideDays-1)/strideDays)
	for d := start; !d.After(end); d = d.AddDate(0, 0, strideDays) {
		dates = append(dates, d.Format(config.DateLayout))
	}
	return dates, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
