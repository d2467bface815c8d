package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/telemetry/internal/injector"
	"github.com/zeusync/telemetry/internal/scenario"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scenario and print the observed changes and queries",
		Long: `Replay a scenario file step by step against a fresh engine.

Every change notification and query result is printed as YAML. Persistent
values are flushed to the configured storage when the session ends.

Examples:
  telemetryd replay testdata/dock.yaml
  telemetryd replay --config telemetryd.yaml flight.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, rootOpts, args[0])
		},
	}
}

func runReplay(cmd *cobra.Command, opts *RootOptions, path string) error {
	cfg, err := opts.Load()
	if err != nil {
		return err
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

	runner := scenario.NewRunner(app.Engine, app.Source, app.Storage, app.Logger)
	report, err := runner.Run(cmd.Context(), sc)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout())
}
