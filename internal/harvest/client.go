package harvest

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
	collyfetcher "github.com/JakeFAU/trademark-harvester/internal/fetcher/colly"
)

// Getter performs a single GET. collyfetcher.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (collyfetcher.Response, error)
}

// DayFetcher fetches one lodgement date from the records endpoint.
type DayFetcher struct {
	client    Getter
	base      *url.URL
	dateParam string
	logger    *zap.Logger
}

// NewDayFetcher validates baseURL and returns a DayFetcher.
func NewDayFetcher(client Getter, baseURL, dateParam string, logger *zap.Logger) (*DayFetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	if dateParam == "" {
		return nil, fmt.Errorf("date parameter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DayFetcher{client: client, base: base, dateParam: dateParam, logger: logger}, nil
}

// URL returns the request URL for date.
func (f *DayFetcher) URL(date string) string {
	u := *f.base
	q := u.Query()
	q.Set(f.dateParam, date)
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch requests date and decodes the payload. Every error becomes a Failure.
func (f *DayFetcher) Fetch(ctx context.Context, date string) batch.Outcome[DayRecord] {
	resp, err := f.client.Get(ctx, f.URL(date))
	if err != nil {
		return batch.Failure[DayRecord](date, fmt.Errorf("%w: %v", batch.ErrTransport, err))
	}
	if !resp.OK() {
		return batch.Failure[DayRecord](date, fmt.Errorf("%w: %d", batch.ErrStatus, resp.StatusCode))
	}
	rec, err := decodeDay(resp.Body)
	if err != nil {
		return batch.Failure[DayRecord](date, fmt.Errorf("%w: %v", batch.ErrDecode, err))
	}
	f.logger.Debug("day fetched", zap.String("date", date), zap.Int("count", rec.Count), zap.Int("items", len(rec.Items)))
	return batch.Success(date, rec)
}
