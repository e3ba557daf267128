package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.data.gov.sg/v1/technology/ipos/trademarks", cfg.API.BaseURL)
	assert.Equal(t, "lodgement_date", cfg.API.DateParam)
	assert.Equal(t, 1, cfg.Harvest.ChunkDays)
	assert.Equal(t, 30, cfg.Harvest.Concurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Harvest.BatchDelay)
	assert.Equal(t, "trademark_data.json", cfg.Harvest.Output)
	assert.Equal(t, BackendLocal, cfg.Assets.Backend)
	assert.Equal(t, "images", cfg.Assets.Dir)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout())
	assert.Equal(t, int64(42), cfg.Inference.Seed)
	assert.Equal(t, 10000, cfg.Inference.MaxProcessed)
	assert.Equal(t, 10, cfg.Inference.Concurrency)
	assert.Equal(t, 10, cfg.Dataset.MaxDescriptionWords)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
api:
  base_url: http://127.0.0.1:8080/records
harvest:
  start_date: "2024-01-01"
  end_date: "2024-01-31"
  chunk_days: 2
  concurrency: 5
  batch_delay: 250ms
assets:
  enabled: true
  backend: minio
  minio:
    endpoint: localhost:9000
    bucket: marks
http:
  rate_limit_rps: 4
  rate_limit_burst: 2
db:
  dsn: postgres://localhost/harvest
logging:
  development: false
  file: harvest.log
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080/records", cfg.API.BaseURL)
	assert.Equal(t, 2, cfg.Harvest.ChunkDays)
	assert.Equal(t, 5, cfg.Harvest.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Harvest.BatchDelay)
	assert.True(t, cfg.Assets.Enabled)
	assert.Equal(t, "localhost:9000", cfg.Assets.MinIO.Endpoint)
	assert.InDelta(t, 4.0, cfg.HTTP.RateLimitRPS, 1e-9)
	assert.Equal(t, "trademark_days", cfg.DB.Table)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "harvest.log", cfg.Logging.File)

	start, end, err := cfg.Harvest.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("harvest:\n  concurrency: 5\n"), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.IntP("concurrency", "p", 30, "")
	fs.String("output", "trademark_data.json", "")
	require.NoError(t, fs.Parse([]string{"-p", "7"}))

	cfg, err := Load(path, map[string]*pflag.Flag{
		"harvest.concurrency": fs.Lookup("concurrency"),
		"harvest.output":      fs.Lookup("output"),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Harvest.Concurrency)
	assert.Equal(t, "trademark_data.json", cfg.Harvest.Output)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero concurrency", mutate: func(c *Config) { c.Harvest.Concurrency = 0 }, wantErr: "harvest.concurrency"},
		{name: "zero chunk", mutate: func(c *Config) { c.Harvest.ChunkDays = 0 }, wantErr: "harvest.chunk_days"},
		{name: "negative delay", mutate: func(c *Config) { c.Harvest.BatchDelay = -time.Second }, wantErr: "batch delays"},
		{name: "unknown backend", mutate: func(c *Config) { c.Assets.Backend = "ftp" }, wantErr: "assets.backend"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Assets.Backend = BackendGCS }, wantErr: "gcs_bucket"},
		{name: "minio without endpoint", mutate: func(c *Config) { c.Assets.Backend = BackendMinIO }, wantErr: "minio"},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, wantErr: "timeout_seconds"},
		{name: "burst without rate", mutate: func(c *Config) {
			c.HTTP.RateLimitRPS = 1
			c.HTTP.RateLimitBurst = 0
		}, wantErr: "rate_limit_burst"},
		{name: "half pubsub", mutate: func(c *Config) { c.PubSub.ProjectID = "p" }, wantErr: "pubsub"},
		{name: "dsn without table", mutate: func(c *Config) {
			c.DB.DSN = "postgres://x"
			c.DB.Table = ""
		}, wantErr: "db.table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestHarvestWindowErrors(t *testing.T) {
	t.Parallel()

	_, _, err := HarvestConfig{}.Window()
	require.Error(t, err)

	_, _, err = HarvestConfig{StartDate: "2024-13-01", EndDate: "2024-01-05"}.Window()
	require.ErrorContains(t, err, "start_date")

	_, _, err = HarvestConfig{StartDate: "2024-01-01", EndDate: "Jan 5"}.Window()
	require.ErrorContains(t, err, "end_date")
}
