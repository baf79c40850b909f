package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cascade-dev/cascade/internal/config"
	"github.com/cascade-dev/cascade/pkg/cascade"
	"github.com/cascade-dev/cascade/pkg/devserver"
	"github.com/cascade-dev/cascade/pkg/instrument"
	"github.com/cascade-dev/cascade/pkg/observe"
	"github.com/cascade-dev/cascade/pkg/persist"
	"github.com/cascade-dev/cascade/pkg/store"
)

// demoState is the state of the demo application.
type demoState struct {
	Ticks int       `json:"ticks"`
	Even  bool      `json:"even"`
	Since time.Time `json:"since"`
}

// tick is the only action the demo dispatches.
type tick struct{}

// demoCmd runs a ticking counter store with a nested observer tree and
// the dev inspection server, until interrupted.
func demoCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a demo store with a live observer tree",
		Long: `Runs a counter store that ticks on an interval, observed by a
two-level subscription tree, with the dev server exposing /state,
/ws, /metrics and /healthz. The final state is snapshotted on
shutdown and restored on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runDemo(cfg, interval)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "dev server address (overrides config)")
	cmd.Flags().StringVar(&configPath, "config", config.ConfigFileName, "path to cascade.json")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "tick interval")
	return cmd
}

func runDemo(cfg *config.Config, interval time.Duration) error {
	logger := slog.Default().With("component", "demo")

	snaps, err := snapshotStore(cfg)
	if err != nil {
		return err
	}

	// Restore the previous run's state if a snapshot exists.
	initial := demoState{Since: time.Now().UTC(), Even: true}
	ctx := context.Background()
	if err := snaps.Load(ctx, cfg.Snapshot.Key, &initial); err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			return err
		}
	} else {
		info("restored snapshot: %d ticks", initial.Ticks)
	}

	st := store.New(func(s demoState, _ tick) demoState {
		s.Ticks++
		s.Even = s.Ticks%2 == 0
		return s
	}, initial)

	// Observability around the store and the dispatch passes.
	metrics := instrument.NewMetrics(instrument.WithNamespace(cfg.MetricsNamespace))
	metered := metrics.WrapStore(instrument.TraceStore(st))

	// Observer tree: a root relay, a tick observer, and a parity
	// observer nested beneath it.
	root := observe.NewRoot(metered, cascade.WithBatch(metrics.WrapBatch(nil)))
	root.Mount()

	ticks := observe.NewObserver(metered, root.Subscription(),
		func(raw any) int { return raw.(demoState).Ticks },
		func(n int) { logger.Info("tick", "count", n) },
	)
	ticks.Mount()

	parity := observe.NewObserver(metered, ticks.Subscription(),
		func(raw any) bool { return raw.(demoState).Even },
		func(even bool) { logger.Info("parity flipped", "even", even) },
	)
	parity.Mount()

	srv := devserver.New(metered, devserver.Config{Addr: cfg.Addr, Logger: logger})
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("dev server error", "error", err)
		}
	}()

	success("demo running on http://%s (ctrl-c to stop)", cfg.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// All dispatches happen on this goroutine, which owns the tree.
loop:
	for {
		select {
		case <-ticker.C:
			st.Dispatch(tick{})
		case <-stop:
			break loop
		}
	}

	parity.Unmount()
	ticks.Unmount()
	root.Unmount()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if err := snaps.Save(ctx, cfg.Snapshot.Key, st.State()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	success("saved snapshot: %d ticks", st.State().Ticks)
	return nil
}

// snapshotStore builds the snapshot backend selected by the config. The
// s3 backend needs an AWS client wired by the embedding application, so
// the CLI only supports files.
func snapshotStore(cfg *config.Config) (persist.Snapshots, error) {
	switch cfg.Snapshot.Backend {
	case "", "file":
		return persist.NewFileSnapshots(cfg.Snapshot.Dir), nil
	case "s3":
		return nil, fmt.Errorf("the s3 snapshot backend requires an S3 client; use pkg/persist from your own application")
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
}
