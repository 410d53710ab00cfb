package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"odds_grid/internal/dataset"
	"odds_grid/internal/domain"
	"odds_grid/internal/engine"
	"odds_grid/internal/event"
	"odds_grid/internal/feed"
	"odds_grid/internal/infra"
	"odds_grid/internal/infra/kv"
	"odds_grid/internal/infra/storage"
	"odds_grid/internal/scroll"
	"odds_grid/internal/selection"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "oddsgrid"
	persistQueueSize = 1024
	loadTimeout      = 30 * time.Second
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string
	// LogStdout mirrors logs to stdout; the grid binary leaves it off because the UI owns the terminal.
	LogStdout bool

	Config   *infra.Config
	Storage  *storage.Storage
	KV       domain.KeyValueStore
	Metrics  *infra.Metrics
	Registry *prometheus.Registry

	redis         *kv.RedisStore
	metricsServer *http.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize performs core system initialization (config, logger, DB, KV, metrics)
func (b *Bootstrap) Initialize(ctx context.Context) error {
	// 1. Load Config
	cfg, err := infra.LoadConfigOrDefault(b.ConfigPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	if b.LogStdout {
		cfg.Logging.Stdout = true
	}
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping Odds Grid...", slog.String("config", b.ConfigPath))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Dataset.DBPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. View state store
	switch cfg.KV.Backend {
	case infra.KVBackendRedis:
		rs, err := kv.ConnectRedis(ctx, kv.Options{
			Addr:      cfg.KV.Redis.Addr,
			Password:  cfg.KV.Redis.Password,
			DB:        cfg.KV.Redis.DB,
			KeyPrefix: cfg.KV.Redis.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("redis kv: %w", err)
		}
		b.redis = rs
		b.KV = rs
	case infra.KVBackendMemory:
		b.KV = kv.NewMemoryStore()
	default:
		b.KV = store
	}
	slog.Info("✅ View state store ready", slog.String("backend", cfg.KV.Backend))

	// 5. Metrics
	b.Metrics = infra.GlobalMetrics
	b.Registry = prometheus.NewRegistry()
	if err := b.Metrics.Register(b.Registry, metricsNamespace); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	return nil
}

// StartMetricsServer serves /metrics and /healthz when a port is configured.
func (b *Bootstrap) StartMetricsServer() {
	if b.Config.Metrics.Port == "" {
		return
	}
	b.metricsServer = infra.StartMetricsServer(b.Config.Metrics.Port, b.Registry, b.Health)
	slog.Info("✅ Metrics server started", slog.String("port", b.Config.Metrics.Port))
}

// Health pings the configured storage backends.
func (b *Bootstrap) Health(ctx context.Context) error {
	if err := b.Storage.Ping(ctx); err != nil {
		return err
	}
	if b.redis != nil {
		return b.redis.Ping(ctx)
	}
	return nil
}

// NewFeed builds the update feed selected by feed.source.
func (b *Bootstrap) NewFeed(ids []string) domain.FeedWorker {
	cfg := b.Config
	switch cfg.Feed.Source {
	case infra.FeedSourceWebSocket:
		return feed.NewWSSource(cfg.Feed.WSURL, b.Metrics)
	case infra.FeedSourceKafka:
		return feed.NewKafkaSource(cfg.Feed.Kafka.Brokers, cfg.Feed.Kafka.Topic, cfg.Feed.Kafka.GroupID, b.Metrics)
	default:
		return feed.NewSimulator(ids, cfg.FeedIntervalDuration(), nil, b.Metrics)
	}
}

// LoadDataset loads (or generates and persists) the match dataset.
func (b *Bootstrap) LoadDataset(ctx context.Context) *dataset.Store {
	store := dataset.NewStore(b.Storage, b.Generator())
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	store.Load(ctx)
	return store
}

// Generator returns the dataset generator used when storage is empty.
func (b *Bootstrap) Generator() func() []domain.Match {
	n := b.Config.Dataset.Matches
	return func() []domain.Match {
		seed := uint64(time.Now().UnixNano())
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		return dataset.Generate(r, dataset.MixedDistribution(n), time.Now())
	}
}

// Grid is a running grid: dataset, sequencer and feed.
type Grid struct {
	Store     *dataset.Store
	Sequencer *engine.Sequencer
	Feed      domain.FeedWorker

	persister *dataset.Persister
	cancel    context.CancelFunc
	done      chan struct{}
}

// Dispatch forwards a UI event to the sequencer.
func (g *Grid) Dispatch(ev event.Event) bool {
	return g.Sequencer.Dispatch(ev)
}

// Start loads the dataset, starts the sequencer and connects the feed.
// onUpdate is called from the sequencer goroutine.
func (b *Bootstrap) Start(ctx context.Context, onUpdate func(engine.Update)) (*Grid, error) {
	cfg := b.Config

	store := b.LoadDataset(ctx)

	persister := dataset.NewPersister(b.Storage, persistQueueSize, b.Metrics)
	rec := engine.NewReconciler(store, persister, b.Metrics)

	event.Warmup()
	seq := engine.NewSequencer(store, rec, selection.New(b.KV), scroll.New(b.KV), engine.Options{
		RowHeight:      cfg.Grid.RowHeight,
		Overscan:       cfg.Grid.Overscan,
		ViewportHeight: cfg.Grid.ViewportHeight,
		InboxSize:      cfg.Grid.InboxSize,
		Metrics:        b.Metrics,
	}, onUpdate)

	worker := b.NewFeed(store.IDs())

	ctx, cancel := context.WithCancel(ctx)
	if err := worker.Connect(ctx); err != nil {
		cancel()
		persister.Close()
		return nil, fmt.Errorf("connect feed: %w", err)
	}

	g := &Grid{
		Store:     store,
		Sequencer: seq,
		Feed:      worker,
		persister: persister,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(g.done)
		seq.Run(ctx, worker.Events())
	}()

	slog.Info("✨ Odds grid operational",
		slog.Int("matches", store.Len()),
		slog.String("feed", cfg.Feed.Source),
	)
	return g, nil
}

// Stop disconnects the feed, stops the sequencer and drains pending writes.
func (g *Grid) Stop() {
	g.Feed.Disconnect()
	g.cancel()
	<-g.done
	g.persister.Close()
	slog.Info("👋 Odds grid stopped")
}

// Close releases storage and servers.
func (b *Bootstrap) Close() error {
	var errs []error

	if b.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, b.metricsServer.Shutdown(ctx))
		cancel()
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.Storage != nil {
		errs = append(errs, b.Storage.Close())
	}
	return errors.Join(errs...)
}
