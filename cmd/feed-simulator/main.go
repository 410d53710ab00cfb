package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"odds_grid/internal/app"
	"odds_grid/internal/feed"
	"odds_grid/internal/infra"
)

// feed-simulator synthesizes odds changes for the stored dataset and
// broadcasts them over websocket (and Kafka, when brokers are configured).
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "feed-simulator: %v\n", err)
		os.Exit(1)
	}
}

// run serves the simulated feed until ctx ends. Every resource it opens is
// released before it returns, including on error paths.
func run(ctx context.Context, configPath string) error {
	bootstrap := app.NewBootstrap(configPath)
	bootstrap.LogStdout = true
	defer bootstrap.Close()

	if err := bootstrap.Initialize(ctx); err != nil {
		return fmt.Errorf("bootstrapping failed: %w", err)
	}
	cfg := bootstrap.Config

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 1. Candidate ids come from the same dataset the grid loads
	store := bootstrap.LoadDataset(ctx)

	// 2. Websocket hub + metrics on one listener
	hub, err := feed.NewHub(bootstrap.Registry)
	if err != nil {
		return fmt.Errorf("hub init failed: %w", err)
	}
	defer hub.Close()

	mux := infra.NewMetricsMux(bootstrap.Registry, bootstrap.Health)
	mux.Handle("/feed", hub)

	srv := &http.Server{
		Addr:              cfg.Simulator.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("✅ Feed simulator listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go hub.RunPinger(ctx)

	// 3. Optional Kafka fan-out
	var publisher *feed.KafkaPublisher
	if len(cfg.Feed.Kafka.Brokers) > 0 {
		publisher = feed.NewKafkaPublisher(cfg.Feed.Kafka.Brokers, cfg.Feed.Kafka.Topic)
		defer publisher.Close()
		slog.Info("✅ Kafka publisher ready", slog.String("topic", cfg.Feed.Kafka.Topic))
	}

	// 4. Simulator
	sim := feed.NewSimulator(store.IDs(), cfg.FeedIntervalDuration(), nil, bootstrap.Metrics)
	if err := sim.Connect(ctx); err != nil {
		return fmt.Errorf("simulator start failed: %w", err)
	}

	go func() {
		<-ctx.Done()
		sim.Disconnect()
	}()

	for ev := range sim.Events() {
		if err := hub.Broadcast(ev); err != nil {
			slog.Warn("Broadcast failed", slog.String("id", ev.MatchID), slog.Any("error", err))
		}
		if publisher != nil {
			pubCtx, cancelPub := context.WithTimeout(ctx, 2*time.Second)
			if err := publisher.Publish(pubCtx, ev); err != nil {
				slog.Warn("Kafka publish failed", slog.String("id", ev.MatchID), slog.Any("error", err))
				bootstrap.Metrics.RecordError()
			}
			cancelPub()
		}
	}

	slog.Info("👋 Shutting down feed simulator...")
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	default:
		return nil
	}
}
