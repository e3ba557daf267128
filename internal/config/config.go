// Package config loads and validates harvester configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DateLayout is the calendar date format used for lodgement dates.
const DateLayout = "2006-01-02"

// Supported asset storage backends.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
	BackendMinIO = "minio"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Harvest   HarvestConfig   `mapstructure:"harvest"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Inference InferenceConfig `mapstructure:"inference"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// APIConfig locates the remote records endpoint.
type APIConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	DateParam string `mapstructure:"date_param"`
}

// HarvestConfig drives the per-date pass.
type HarvestConfig struct {
	StartDate   string        `mapstructure:"start_date"`
	EndDate     string        `mapstructure:"end_date"`
	ChunkDays   int           `mapstructure:"chunk_days"`
	Concurrency int           `mapstructure:"concurrency"`
	BatchDelay  time.Duration `mapstructure:"batch_delay"`
	Output      string        `mapstructure:"output"`
}

// Window parses the configured start and end dates.
func (h HarvestConfig) Window() (time.Time, time.Time, error) {
	if h.StartDate == "" || h.EndDate == "" {
		return time.Time{}, time.Time{}, errors.New("harvest.start_date and harvest.end_date are required")
	}
	start, err := time.Parse(DateLayout, h.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse harvest.start_date: %w", err)
	}
	end, err := time.Parse(DateLayout, h.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse harvest.end_date: %w", err)
	}
	return start, end, nil
}

// AssetsConfig drives the download pass and selects the blob backend.
type AssetsConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Backend     string        `mapstructure:"backend"`
	Dir         string        `mapstructure:"dir"`
	GCSBucket   string        `mapstructure:"gcs_bucket"`
	Prefix      string        `mapstructure:"prefix"`
	Concurrency int           `mapstructure:"concurrency"`
	BatchDelay  time.Duration `mapstructure:"batch_delay"`
	MinIO       MinIOConfig   `mapstructure:"minio"`
}

// MinIOConfig holds S3-compatible object storage credentials.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// HTTPConfig configures the shared outbound client.
type HTTPConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	MaxBodyBytes   int     `mapstructure:"max_body_bytes"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Timeout converts TimeoutSeconds into a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// InferenceConfig drives the dataset description pass.
type InferenceConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Dataset      string        `mapstructure:"dataset"`
	ImagesDir    string        `mapstructure:"images_dir"`
	MaxProcessed int           `mapstructure:"max_processed"`
	Seed         int64         `mapstructure:"seed"`
	Concurrency  int           `mapstructure:"concurrency"`
	BatchDelay   time.Duration `mapstructure:"batch_delay"`
	Output       string        `mapstructure:"output"`
}

// DatasetConfig drives the cleaned dataset builder.
type DatasetConfig struct {
	Raw                 string `mapstructure:"raw"`
	Output              string `mapstructure:"output"`
	ImagesDir           string `mapstructure:"images_dir"`
	MaxDescriptionWords int    `mapstructure:"max_description_words"`
}

// DBConfig enables the optional Postgres export of harvested days.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds metadata for run-complete notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig exposes the optional status server.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features and the optional log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// Load builds a Config from defaults, an optional file, the environment and
// the supplied flag bindings (config key -> flag), in increasing precedence.
func Load(path string, flags map[string]*pflag.Flag) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return Config{}, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.data.gov.sg/v1/technology/ipos/trademarks")
	v.SetDefault("api.date_param", "lodgement_date")
	v.SetDefault("harvest.chunk_days", 1)
	v.SetDefault("harvest.concurrency", 30)
	v.SetDefault("harvest.batch_delay", 500*time.Millisecond)
	v.SetDefault("harvest.output", "trademark_data.json")
	v.SetDefault("assets.enabled", false)
	v.SetDefault("assets.backend", BackendLocal)
	v.SetDefault("assets.dir", "images")
	v.SetDefault("assets.concurrency", 30)
	v.SetDefault("assets.batch_delay", 500*time.Millisecond)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "trademark-harvester/0.1")
	v.SetDefault("http.max_body_bytes", 0)
	v.SetDefault("http.rate_limit_rps", 0)
	v.SetDefault("http.rate_limit_burst", 1)
	v.SetDefault("inference.base_url", "http://localhost:1234")
	v.SetDefault("inference.dataset", "python/dset/cleaned_data.json")
	v.SetDefault("inference.images_dir", "python/dset/imgs")
	v.SetDefault("inference.max_processed", 10000)
	v.SetDefault("inference.seed", 42)
	v.SetDefault("inference.concurrency", 10)
	v.SetDefault("inference.batch_delay", 0)
	v.SetDefault("dataset.raw", "trademark_data.json")
	v.SetDefault("dataset.output", "python/dset/cleaned_data.json")
	v.SetDefault("dataset.images_dir", "images")
	v.SetDefault("dataset.max_description_words", 10)
	v.SetDefault("db.table", "trademark_days")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.DateParam == "" {
		return fmt.Errorf("api.date_param is required")
	}
	if c.Harvest.ChunkDays <= 0 {
		return fmt.Errorf("harvest.chunk_days must be > 0")
	}
	if c.Harvest.Concurrency <= 0 {
		return fmt.Errorf("harvest.concurrency must be > 0")
	}
	if c.Harvest.BatchDelay < 0 || c.Assets.BatchDelay < 0 || c.Inference.BatchDelay < 0 {
		return fmt.Errorf("batch delays must be >= 0")
	}
	if c.Assets.Concurrency <= 0 {
		return fmt.Errorf("assets.concurrency must be > 0")
	}
	switch c.Assets.Backend {
	case BackendLocal:
		if c.Assets.Dir == "" {
			return fmt.Errorf("assets.dir is required for the local backend")
		}
	case BackendGCS:
		if c.Assets.GCSBucket == "" {
			return fmt.Errorf("assets.gcs_bucket is required for the gcs backend")
		}
	case BackendMinIO:
		if c.Assets.MinIO.Endpoint == "" || c.Assets.MinIO.Bucket == "" {
			return fmt.Errorf("assets.minio.endpoint and assets.minio.bucket are required for the minio backend")
		}
	default:
		return fmt.Errorf("assets.backend must be one of local, gcs, minio; got %q", c.Assets.Backend)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps must be >= 0")
	}
	if c.HTTP.RateLimitRPS > 0 && c.HTTP.RateLimitBurst <= 0 {
		return fmt.Errorf("http.rate_limit_burst must be > 0 when rate limiting is enabled")
	}
	if c.Inference.Concurrency <= 0 {
		return fmt.Errorf("inference.concurrency must be > 0")
	}
	if c.Inference.MaxProcessed < 0 {
		return fmt.Errorf("inference.max_processed must be >= 0")
	}
	if c.Dataset.MaxDescriptionWords <= 0 {
		return fmt.Errorf("dataset.max_description_words must be > 0")
	}
	if c.DB.DSN != "" && c.DB.Table == "" {
		return fmt.Errorf("db.table is required when db.dsn is set")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}
