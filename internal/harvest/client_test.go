package harvest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
	collyfetcher "github.com/JakeFAU/trademark-harvester/internal/fetcher/colly"
)

func TestNewDayFetcherValidates(t *testing.T) {
	t.Parallel()

	_, err := NewDayFetcher(nil, "https://api.example.com/trademarks", "lodgement_date", nil)
	require.Error(t, err)
	_, err = NewDayFetcher(&stubGetter{}, "/relative", "lodgement_date", nil)
	require.Error(t, err)
	_, err = NewDayFetcher(&stubGetter{}, "https://api.example.com/trademarks", "", nil)
	require.Error(t, err)
}

func TestDayFetcherURL(t *testing.T) {
	t.Parallel()

	f, err := NewDayFetcher(&stubGetter{}, "https://api.example.com/v1/trademarks?format=json", "lodgement_date", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/trademarks?format=json&lodgement_date=2024-01-01", f.URL("2024-01-01"))
}

func TestDayFetcherOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		resp    collyfetcher.Response
		err     error
		wantErr error
	}{
		{name: "success", resp: collyfetcher.Response{StatusCode: http.StatusOK, Body: []byte(`{"lodgement_date":"2024-01-01","count":1,"items":[{}]}`)}},
		{name: "transport", err: errors.New("connection refused"), wantErr: batch.ErrTransport},
		{name: "status", resp: collyfetcher.Response{StatusCode: http.StatusTooManyRequests}, wantErr: batch.ErrStatus},
		{name: "decode", resp: collyfetcher.Response{StatusCode: http.StatusOK, Body: []byte(`oops`)}, wantErr: batch.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			getter := &stubGetter{responses: map[string]stubResponse{
				"https://api.example.com/t?lodgement_date=2024-01-01": {resp: tt.resp, err: tt.err},
			}}
			f, err := NewDayFetcher(getter, "https://api.example.com/t", "lodgement_date", nil)
			require.NoError(t, err)

			out := f.Fetch(context.Background(), "2024-01-01")
			assert.Equal(t, "2024-01-01", out.Key)
			if tt.wantErr == nil {
				require.True(t, out.OK())
				assert.Equal(t, 1, out.Value.Count)
				return
			}
			require.False(t, out.OK())
			assert.ErrorIs(t, out.Err, tt.wantErr)
		})
	}
}

func TestDayFetcherStatusReasonNamesCode(t *testing.T) {
	t.Parallel()

	getter := &stubGetter{fallback: stubResponse{resp: collyfetcher.Response{StatusCode: http.StatusInternalServerError}}}
	f, err := NewDayFetcher(getter, "https://api.example.com/t", "d", nil)
	require.NoError(t, err)
	out := f.Fetch(context.Background(), "2024-01-02")
	assert.Equal(t, "unexpected status: 500", out.Reason())
}
