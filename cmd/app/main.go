package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"odds_grid/internal/app"
	"odds_grid/internal/engine"
	"odds_grid/internal/ui"

	tea "github.com/charmbracelet/bubbletea"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	pprofAddr := flag.String("pprof", "", "pprof listen address, e.g. localhost:6060")
	flag.Parse()

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, *pprofAddr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "odds grid: %v\n", err)
		os.Exit(1)
	}
}

// run drives the grid until the UI exits or ctx ends. Deferred cleanup
// always runs, so a partial bootstrap is released too.
func run(ctx context.Context, configPath, pprofAddr string) error {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap(configPath)
	defer bootstrap.Close()

	if err := bootstrap.Initialize(ctx); err != nil {
		return fmt.Errorf("bootstrapping failed: %w", err)
	}

	// 2. Pprof Server (for performance profiling)
	if pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}
	bootstrap.StartMetricsServer()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 3. Rendering surface. The sequencer pushes updates into a buffered
	// channel the model drains, so neither side blocks the other's loop.
	updates := make(chan engine.Update, 4096)
	model := ui.NewModel(updates, bootstrap.Config.Grid.RowHeight)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	// 4. Load dataset and start the grid behind the loading spinner
	type started struct {
		grid *app.Grid
		err  error
	}
	startCh := make(chan started, 1)
	go func() {
		grid, err := bootstrap.Start(ctx, func(u engine.Update) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		})
		startCh <- started{grid: grid, err: err}
		if err != nil {
			program.Quit()
			return
		}
		program.Send(ui.ReadyMsg{Dispatcher: grid})
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		slog.Error("UI stopped", slog.Any("error", err))
	}

	slog.Info("👋 Shutting down gracefully...")
	cancel()
	res := <-startCh
	if res.err != nil {
		return fmt.Errorf("grid start failed: %w", res.err)
	}
	res.grid.Stop()
	return nil
}
