// Command etl converts acoustic localization results into the flat metadata
// table consumed by downstream tooling. It runs one-shot conversions from
// files, verifies produced tables, or serves a streaming Kafka pipeline.
package main

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/localized-events-etl/internal/config"
	"github.com/couchcryptid/localized-events-etl/internal/observability"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "etl",
		Short:         "Localized events ETL",
		Long:          `Normalize acoustic event localization results into a stable nine-column metadata table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	root.AddCommand(
		convertCommand(a),
		serveCommand(a),
		verifyCommand(a),
	)
	return root
}
