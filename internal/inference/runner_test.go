package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
	collyfetcher "github.com/JakeFAU/trademark-harvester/internal/fetcher/colly"
)

func TestNewClientEndpoint(t *testing.T) {
	t.Parallel()

	c, err := NewClient(&stubPoster{}, "http://localhost:1234/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1234/invoke", c.Endpoint())

	_, err = NewClient(&stubPoster{}, "localhost", nil)
	require.Error(t, err)
	_, err = NewClient(nil, "http://localhost:1234", nil)
	require.Error(t, err)
}

func TestDescribeOutcomes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")
	item := Item{Entry: Entry{ImageName: "a.jpg", ChineseCharacter: strPtr("山")}, Path: filepath.Join(dir, "a.jpg")}

	tests := []struct {
		name    string
		item    Item
		poster  *stubPoster
		wantErr error
	}{
		{
			name:   "success",
			item:   item,
			poster: &stubPoster{resp: collyfetcher.Response{StatusCode: http.StatusOK, Body: []byte(`{"chineseCharacter":"山"}`)}},
		},
		{
			name:    "missing image",
			item:    Item{Entry: item.Entry, Path: filepath.Join(dir, "gone.jpg")},
			poster:  &stubPoster{},
			wantErr: batch.ErrStorage,
		},
		{
			name:    "transport",
			item:    item,
			poster:  &stubPoster{err: errors.New("connection refused")},
			wantErr: batch.ErrTransport,
		},
		{
			name:    "status",
			item:    item,
			poster:  &stubPoster{resp: collyfetcher.Response{StatusCode: http.StatusServiceUnavailable}},
			wantErr: batch.ErrStatus,
		},
		{
			name:    "decode",
			item:    item,
			poster:  &stubPoster{resp: collyfetcher.Response{StatusCode: http.StatusOK, Body: []byte(`<html>`)}},
			wantErr: batch.ErrDecode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewClient(tt.poster, "http://localhost:1234", nil)
			require.NoError(t, err)
			out := c.Describe(context.Background(), tt.item)
			assert.Equal(t, "a.jpg", out.Key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, out.Err, tt.wantErr)
				return
			}
			require.True(t, out.OK())
			require.NotNil(t, out.Value.ChineseCharacter)
			assert.Equal(t, "山", *out.Value.ChineseCharacter)
			assert.Nil(t, out.Value.WordsInMark)

			req, ok := tt.poster.payload.(invokeRequest)
			require.True(t, ok)
			assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("img-a.jpg")), req.Image)
			assert.Equal(t, "http://localhost:1234/invoke", tt.poster.url)
		})
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoke" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body invokeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Image == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"wordsInMark":"SUN","chineseCharacter":"日","descrOfDevice":null}`))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	imgs := filepath.Join(dir, "imgs")
	require.NoError(t, os.MkdirAll(imgs, 0o755))
	writeImages(t, imgs, "T1_a.jpg", "T2_b.jpg")
	dataset := filepath.Join(dir, "cleaned.json")
	require.NoError(t, os.WriteFile(dataset, []byte(`[
		{"imageName":"T1_a.jpg","chineseCharacter":"日"},
		{"imageName":"T2_b.jpg","chineseCharacter":"月"},
		{"imageName":"T3_c.jpg","chineseCharacter":null}
	]`), 0o600))
	output := filepath.Join(dir, "out", "results.json")

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	client, err := NewClient(collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second}), srv.URL, logger)
	require.NoError(t, err)
	runner, err := NewRunner(batch.NewScheduler(uuid.New(), nil, logger), client, logger)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), RunOptions{
		Dataset:   dataset,
		ImagesDir: imgs,
		Options:   Options{Seed: 42, MaxProcessed: 10},
		Pass:      batch.Config{Concurrency: 10},
		Output:    output,
	})
	require.NoError(t, err)
	assert.Equal(t, Pass, summary.Pass)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)

	results := logs.FilterMessage("inference result").All()
	require.Len(t, results, 2)
	fields := results[0].ContextMap()
	assert.Equal(t, "T1_a.jpg", fields["image"])
	assert.Equal(t, "日", fields["original"])
	assert.Equal(t, "None", fields["descr_of_device"])

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var records []Record
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "T2_b.jpg", records[1].ImageName)
	assert.Equal(t, "月", records[1].Original)
	require.NotNil(t, records[1].Result.WordsInMark)
	assert.Equal(t, "SUN", *records[1].Result.WordsInMark)
}

func TestRunnerMissingDataset(t *testing.T) {
	t.Parallel()

	client, err := NewClient(&stubPoster{}, "http://localhost:1234", nil)
	require.NoError(t, err)
	runner, err := NewRunner(batch.NewScheduler(uuid.New(), nil, nil), client, nil)
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), RunOptions{Dataset: filepath.Join(t.TempDir(), "none.json"), Pass: batch.Config{Concurrency: 1}})
	require.Error(t, err)
}

// --- fakes ---

type stubPoster struct {
	resp    collyfetcher.Response
	err     error
	url     string
	payload any
}

func (s *stubPoster) PostJSON(_ context.Context, rawURL string, payload any) (collyfetcher.Response, error) {
	s.url = rawURL
	s.payload = payload
	return s.resp, s.err
}
