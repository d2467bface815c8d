// Package cli holds the telemetryd commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/telemetry/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// Load reads the configuration file and applies flag overrides.
func (o *RootOptions) Load() (config.Config, error) {
	cfg, err := config.LoadFile(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	return cfg, nil
}

// NewRootCommand creates the root command for telemetryd.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "telemetryd",
		Short: "Cockpit telemetry variable engine",
		Long: `telemetryd replays scripted flight sessions against the telemetry engine
and serves variable changes to remote displays over websocket.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}
