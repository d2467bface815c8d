package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/telemetry/internal/core/observability/log"
	"github.com/zeusync/telemetry/internal/injector"
	"github.com/zeusync/telemetry/internal/scenario"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
	Tick time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <scenario.yaml>",
		Short: "Run a scenario in real time and stream changes over websocket",
		Long: `Run a scenario one step per tick and serve change notifications at
/feed?entity=<uuid>&vars=A,B and metrics at /metrics. Once the steps are
exhausted every live entity keeps ticking on its last readings until the
process is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides feed.listen_addr)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 100*time.Millisecond, "interval between ticks")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, path string) error {
	if opts.Tick <= 0 {
		return errors.New("tick must be positive")
	}
	cfg, err := opts.Load()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Feed.ListenAddr = opts.Addr
	}
	sc, err := scenario.LoadFile(path)
	if err != nil {
		return err
	}

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	if err := app.Feed.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Feed.Stop(stopCtx)
	}()

	runner := scenario.NewRunner(app.Engine, app.Source, app.Storage, app.Logger)
	if err := runner.Prepare(ctx, sc); err != nil {
		return err
	}

	ticker := time.NewTicker(opts.Tick)
	defer ticker.Stop()

	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			app.Logger.Info("Shutting down", log.Int("steps", step))
			endCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.Engine.EndSession(endCtx)
		case <-ticker.C:
		}

		app.Feed.Pump()
		if step < len(sc.Steps) {
			err = runner.Step(ctx, step, sc.Steps[step])
		} else {
			err = runner.TickAll(ctx)
		}
		if err != nil {
			app.Logger.Warn("Step failed", log.Int("step", step), log.Error(err))
		}
	}
}
