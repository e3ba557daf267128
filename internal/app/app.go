// Package app initializes and holds long-lived services for one harvester
// process, acting as a dependency injection container for the commands.
package app

import (
	"context"
	"errors"
	"fmt"

	gcstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/api"
	"github.com/JakeFAU/trademark-harvester/internal/batch"
	"github.com/JakeFAU/trademark-harvester/internal/config"
	collyfetcher "github.com/JakeFAU/trademark-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/trademark-harvester/internal/harvest"
	"github.com/JakeFAU/trademark-harvester/internal/metrics"
	"github.com/JakeFAU/trademark-harvester/internal/policy/ratelimit"
	"github.com/JakeFAU/trademark-harvester/internal/progress"
	"github.com/JakeFAU/trademark-harvester/internal/progress/sinks"
	"github.com/JakeFAU/trademark-harvester/internal/publisher/memory"
	"github.com/JakeFAU/trademark-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/trademark-harvester/internal/storage"
	"github.com/JakeFAU/trademark-harvester/internal/storage/gcs"
	"github.com/JakeFAU/trademark-harvester/internal/storage/local"
	"github.com/JakeFAU/trademark-harvester/internal/storage/minio"
	"github.com/JakeFAU/trademark-harvester/internal/storage/postgres"
)

// App holds the shared services of a run. It is built once by the root
// command and closed when the command returns.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	runID    uuid.UUID
	fetcher  *collyfetcher.Fetcher
	hub      *progress.Hub
	snapshot *sinks.SnapshotSink
	status   *api.Server
	closers  []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

type options struct {
	registerer prometheus.Registerer
}

// Option customizes New.
type Option func(*options)

// WithRegisterer registers the progress collectors on reg instead of the
// default Prometheus registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New builds the progress pipeline, the shared HTTP client and, when
// configured, the status server.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}
	metrics.Init()

	promSink, err := sinks.NewPrometheusSink(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("init progress metrics: %w", err)
	}
	snapshot := sinks.NewSnapshotSink()
	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger), promSink, snapshot)

	fetchCfg := collyfetcher.Config{
		UserAgent:   cfg.HTTP.UserAgent,
		Timeout:     cfg.HTTP.Timeout(),
		MaxBodySize: cfg.HTTP.MaxBodyBytes,
	}
	if cfg.HTTP.RateLimitRPS > 0 {
		fetchCfg.Limiter = ratelimit.New(ratelimit.Config{
			RPS:   cfg.HTTP.RateLimitRPS,
			Burst: cfg.HTTP.RateLimitBurst,
		})
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		runID:    uuid.New(),
		fetcher:  collyfetcher.New(fetchCfg),
		hub:      hub,
		snapshot: snapshot,
	}

	if cfg.Metrics.ListenAddr != "" {
		a.status = api.NewServer(snapshot, logger)
		if err := a.status.Start(cfg.Metrics.ListenAddr); err != nil {
			_ = hub.Close(context.Background())
			return nil, err
		}
	}

	logger.Info("application services initialized",
		zap.String("run_id", a.runID.String()),
		zap.Bool("rate_limited", fetchCfg.Limiter != nil),
		zap.String("status_addr", a.StatusAddr()),
	)
	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// RunID identifies this process run in logs, events and exports.
func (a *App) RunID() uuid.UUID { return a.runID }

// Fetcher returns the shared HTTP client.
func (a *App) Fetcher() *collyfetcher.Fetcher { return a.fetcher }

// Progress returns the snapshot of the latest batch per pass.
func (a *App) Progress() *sinks.SnapshotSink { return a.snapshot }

// StatusAddr is the status server address, empty when disabled.
func (a *App) StatusAddr() string {
	if a.status == nil {
		return ""
	}
	return a.status.Addr()
}

// Scheduler returns a batch scheduler reporting to the progress hub.
func (a *App) Scheduler() *batch.Scheduler {
	return batch.NewScheduler(a.runID, a.hub, a.logger)
}

// OpenBlobStore builds the configured asset store. localDir is used as the
// base directory for the local backend.
func (a *App) OpenBlobStore(ctx context.Context, localDir string) (storage.BlobStore, error) {
	assets := a.cfg.Assets
	switch assets.Backend {
	case config.BackendLocal:
		return local.New(local.Config{BaseDir: localDir})
	case config.BackendGCS:
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: assets.GCSBucket, Prefix: assets.Prefix})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		a.onClose("gcs client", func(context.Context) error { return client.Close() })
		return store, nil
	case config.BackendMinIO:
		return minio.New(ctx, minio.Config{
			Endpoint:  assets.MinIO.Endpoint,
			AccessKey: assets.MinIO.AccessKey,
			SecretKey: assets.MinIO.SecretKey,
			Bucket:    assets.MinIO.Bucket,
			Prefix:    assets.Prefix,
			UseSSL:    assets.MinIO.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown asset backend %q", assets.Backend)
	}
}

// Exporter returns the Postgres day store, or nil when db.dsn is unset.
func (a *App) Exporter(ctx context.Context) (harvest.Exporter, error) {
	if a.cfg.DB.DSN == "" {
		return nil, nil
	}
	store, err := postgres.NewDayStore(ctx, postgres.DayStoreConfig{DSN: a.cfg.DB.DSN, Table: a.cfg.DB.Table})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	a.onClose("postgres", func(context.Context) error {
		store.Close()
		return nil
	})
	a.logger.Info("postgres export enabled", zap.String("table", a.cfg.DB.Table))
	return store, nil
}

// Notifier returns a Pub/Sub publisher when configured, otherwise an
// in-memory publisher that only logs.
func (a *App) Notifier(ctx context.Context) (harvest.Notifier, error) {
	if a.cfg.PubSub.ProjectID == "" {
		pub := memory.New(a.logger)
		a.onClose("memory publisher", func(context.Context) error { return pub.Close() })
		return pub, nil
	}
	pub, err := pubsub.New(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return nil, err
	}
	a.onClose("pubsub publisher", func(context.Context) error { return pub.Close() })
	a.logger.Info("pubsub notifications enabled", zap.String("topic", a.cfg.PubSub.TopicName))
	return pub, nil
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close stops the status server, flushes progress sinks and releases clients
// in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.status != nil {
		if err := a.status.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.hub.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close progress hub: %w", err))
	}
	if dropped := a.hub.Dropped(); dropped > 0 {
		a.logger.Warn("progress events dropped", zap.Int64("dropped", dropped))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Warn("close failed", zap.String("service", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	// Syncing stderr fails on some platforms; the error is not actionable.
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
