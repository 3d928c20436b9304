// Package app initializes and holds long-lived application services, acting as
// a dependency injection container for the fetch and flatten commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	bq "cloud.google.com/go/bigquery"
	ps "cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/transit-ingest/internal/clock/system"
	"github.com/JakeFAU/transit-ingest/internal/config"
	collyfetcher "github.com/JakeFAU/transit-ingest/internal/fetcher/colly"
	"github.com/JakeFAU/transit-ingest/internal/flatten"
	"github.com/JakeFAU/transit-ingest/internal/id/uuid"
	"github.com/JakeFAU/transit-ingest/internal/ingest"
	"github.com/JakeFAU/transit-ingest/internal/logging"
	"github.com/JakeFAU/transit-ingest/internal/metrics"
	pubmemory "github.com/JakeFAU/transit-ingest/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/transit-ingest/internal/publisher/pubsub"
	"github.com/JakeFAU/transit-ingest/internal/retry"
	"github.com/JakeFAU/transit-ingest/internal/source"
	"github.com/JakeFAU/transit-ingest/internal/storage/gcs"
	"github.com/JakeFAU/transit-ingest/internal/storage/local"
	blobmemory "github.com/JakeFAU/transit-ingest/internal/storage/memory"
	whbigquery "github.com/JakeFAU/transit-ingest/internal/warehouse/bigquery"
	whmemory "github.com/JakeFAU/transit-ingest/internal/warehouse/memory"
	whpostgres "github.com/JakeFAU/transit-ingest/internal/warehouse/postgres"
)

// FlattenOptions are the per-invocation inputs of the flatten command. Empty
// fields fall back to the flatten section of the configuration.
type FlattenOptions struct {
	InputPath         string
	InputSubscription string
	OutputTable       string
}

// App holds the shared services for one process. Clients are created on first
// use and released by Close.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	mu            sync.Mutex
	storageClient *storage.Client
	pubsubClient  *ps.Client
	closers       []func() error
	metricsServer *http.Server

	// memory backends are kept so they survive between component builds.
	memPublisher *pubmemory.Publisher
	memBlobs     *blobmemory.BlobStore
	memSink      *whmemory.Sink
}

// New builds the logger and, when enabled, starts the metrics endpoint.
func New(cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithLogger(cfg, logger), nil
}

// NewWithLogger builds an App around an existing logger.
func NewWithLogger(cfg config.Config, logger *zap.Logger) *App {
	a := &App{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		a.startMetrics()
	}
	return a
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) startMetrics() {
	addr := fmt.Sprintf(":%d", a.cfg.Metrics.Port)
	a.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           metrics.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("starting metrics server", zap.String("addr", addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// RunFetch executes one fetch cycle over the configured routes.
func (a *App) RunFetch(ctx context.Context) ([]ingest.RouteResult, error) {
	runner, err := a.Runner(ctx)
	if err != nil {
		return nil, err
	}
	return runner.RunCycle(ctx)
}

// Runner wires the fetch cycle from configuration.
func (a *App) Runner(ctx context.Context) (*ingest.Runner, error) {
	publisher, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}
	blobs, err := a.blobStore(ctx)
	if err != nil {
		return nil, err
	}
	fc := a.cfg.Fetch
	return ingest.NewRunner(ingest.Config{
		BaseURL:    fc.BaseURL,
		RouteIDs:   fc.RouteIDs,
		Fetch:      ingest.FetchOptions{Timeout: a.cfg.FetchTimeout()},
		ScratchDir: fc.ScratchDir,
		Prefix:     a.cfg.Storage.Prefix,
	}, ingest.Dependencies{
		Getter:    collyfetcher.New(collyfetcher.Config{UserAgent: fc.UserAgent, MaxBodyBytes: fc.MaxBodyBytes}),
		Publisher: publisher,
		Blobs:     blobs,
		Retry:     retry.NewFixedPolicy(fc.MaxAttempts, a.cfg.FetchDelay()),
		IDs:       uuid.New(),
		Logger:    a.logger,
	})
}

// RunFlatten streams the selected input into the selected table.
func (a *App) RunFlatten(ctx context.Context, opts FlattenOptions) (flatten.Stats, error) {
	opts = a.flattenDefaults(opts)

	src, err := a.Source(ctx, opts)
	if err != nil {
		return flatten.Stats{}, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			a.logger.Warn("close input", zap.Error(cerr))
		}
	}()

	sink, err := a.Sink(ctx, opts.OutputTable)
	if err != nil {
		return flatten.Stats{}, err
	}

	transformer := flatten.NewTransformer(system.New(), a.logger)
	pipeline := flatten.NewPipeline(transformer, sink, a.cfg.Flatten.BatchSize, a.logger)
	return pipeline.Run(ctx, src)
}

func (a *App) flattenDefaults(opts FlattenOptions) FlattenOptions {
	if opts.InputPath == "" && opts.InputSubscription == "" {
		opts.InputPath = a.cfg.Flatten.InputPath
		opts.InputSubscription = a.cfg.Flatten.InputSubscription
	}
	if opts.OutputTable == "" {
		opts.OutputTable = a.cfg.Flatten.OutputTable
	}
	return opts
}

// Source opens the flatten input: a subscription when one is named, otherwise a path.
func (a *App) Source(ctx context.Context, opts FlattenOptions) (source.Source, error) {
	switch {
	case opts.InputPath != "" && opts.InputSubscription != "":
		return nil, errors.New("input_path and input_subscription are mutually exclusive")
	case opts.InputSubscription != "":
		client, err := a.pubsub(ctx)
		if err != nil {
			return nil, err
		}
		sub := client.Subscription(opts.InputSubscription)
		ok, err := sub.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check subscription %q: %w", opts.InputSubscription, err)
		}
		if !ok {
			return nil, fmt.Errorf("subscription %q does not exist", opts.InputSubscription)
		}
		return source.NewSubscriptionSource(sub), nil
	case opts.InputPath != "":
		return source.OpenPath(ctx, opts.InputPath, a.openObject)
	default:
		return nil, errors.New("one of input_path or input_subscription is required")
	}
}

// openObject reads back an archive URI: gs:// through the storage client,
// memory:// from the in-process archive.
func (a *App) openObject(ctx context.Context, uri string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(uri, "gs://"):
		client, err := a.storage(ctx)
		if err != nil {
			return nil, err
		}
		return gcs.OpenURI(ctx, client, uri)
	case strings.HasPrefix(uri, blobmemory.URIPrefix):
		a.mu.Lock()
		blobs := a.memBlobs
		a.mu.Unlock()
		if blobs == nil {
			return nil, fmt.Errorf("no in-memory archive to read %s from", uri)
		}
		return blobs.OpenObject(ctx, uri)
	default:
		return nil, fmt.Errorf("unsupported input uri %q", uri)
	}
}

// Sink builds the configured warehouse sink for table, creating the table
// when warehouse.create_table is set.
func (a *App) Sink(ctx context.Context, table string) (flatten.Sink, error) {
	wc := a.cfg.Warehouse
	switch wc.Provider {
	case config.BackendMemory:
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.memSink == nil {
			a.memSink = whmemory.New()
		}
		return a.memSink, nil

	case config.BackendPostgres:
		sink, err := whpostgres.New(ctx, whpostgres.Config{DSN: wc.DSN, Table: table, MaxConns: wc.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		a.addCloser(sink.Close)
		if wc.CreateTable {
			if err := sink.EnsureTable(ctx); err != nil {
				return nil, err
			}
		}
		return sink, nil

	case config.BackendBigQuery:
		ref, err := whbigquery.ParseTableSpec(table, wc.ProjectID)
		if err != nil {
			return nil, err
		}
		client, err := bq.NewClient(ctx, ref.Project)
		if err != nil {
			return nil, fmt.Errorf("create bigquery client: %w", err)
		}
		a.addCloser(client.Close)
		sink, err := whbigquery.New(client, ref, a.logger)
		if err != nil {
			return nil, err
		}
		if wc.CreateTable {
			if err := sink.EnsureTable(ctx); err != nil {
				return nil, err
			}
		}
		return sink, nil

	default:
		return nil, fmt.Errorf("unknown warehouse provider: %s", wc.Provider)
	}
}

func (a *App) publisher(ctx context.Context) (ingest.Publisher, error) {
	pc := a.cfg.PubSub
	switch pc.Provider {
	case config.BackendMemory:
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.memPublisher == nil {
			a.memPublisher = pubmemory.New()
		}
		return a.memPublisher, nil
	case config.BackendPubSub:
		client, err := a.pubsub(ctx)
		if err != nil {
			return nil, err
		}
		topic := client.Topic(pc.TopicID)
		ok, err := topic.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check pubsub topic %q: %w", pc.TopicID, err)
		}
		if !ok {
			return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", pc.TopicID, pc.ProjectID)
		}
		pub := pubsubpublisher.New(topic)
		a.addCloser(pub.Close)
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown pubsub provider: %s", pc.Provider)
	}
}

func (a *App) blobStore(ctx context.Context) (ingest.BlobStore, error) {
	sc := a.cfg.Storage
	switch sc.Provider {
	case config.BackendMemory:
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.memBlobs == nil {
			a.memBlobs = blobmemory.NewBlobStore()
		}
		return a.memBlobs, nil
	case config.BackendLocal:
		store, err := local.New(local.Config{BaseDir: sc.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		client, err := a.storage(ctx)
		if err != nil {
			return nil, err
		}
		store, err := gcs.New(client, gcs.Config{Bucket: sc.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", sc.Provider)
	}
}

func (a *App) storage(ctx context.Context) (*storage.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.storageClient != nil {
		return a.storageClient, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	a.storageClient = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *App) pubsub(ctx context.Context) (*ps.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pubsubClient != nil {
		return a.pubsubClient, nil
	}
	if a.cfg.PubSub.ProjectID == "" {
		return nil, errors.New("pubsub.project_id is required")
	}
	client, err := ps.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	a.pubsubClient = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *App) addCloser(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close releases clients in reverse creation order and flushes the logger.
func (a *App) Close() {
	a.logger.Info("shutting down application services")

	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("error stopping metrics server", zap.Error(err))
		}
	}
	// Sync fails on stderr/stdout on some platforms; nothing useful to do with it.
	_ = a.logger.Sync()
}
