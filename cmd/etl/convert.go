package main

import (
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/localized-events-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/localized-events-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/couchcryptid/localized-events-etl/internal/observability"
	"github.com/couchcryptid/localized-events-etl/internal/pipeline"
	"github.com/spf13/cobra"
)

type convertFlags struct {
	prefix         string
	output         string
	dryRun         bool
	maxResidualRMS float64
	sqlitePath     string
}

func convertCommand(a *app) *cobra.Command {
	var f convertFlags

	cmd := &cobra.Command{
		Use:   "convert <json_file>",
		Short: "Convert a localization results file to a metadata table",
		Long: `Read a {"localized_events": [...]} document, assign event ids, round
tdoas and distance residuals, and write the nine-column CSV table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("prefix") {
				f.prefix = a.cfg.EventIDPrefix
			}
			if !flags.Changed("output") {
				f.output = a.cfg.OutputPath
			}
			if !flags.Changed("max-residual-rms") {
				f.maxResidualRMS = a.cfg.MaxResidualRMS
			}
			if !flags.Changed("sqlite") {
				f.sqlitePath = a.cfg.SQLitePath
			}
			if f.maxResidualRMS < 0 {
				return fmt.Errorf("--max-residual-rms must not be negative")
			}
			return runConvert(cmd.Context(), a, args[0], f, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.prefix, "prefix", "p", "", "Event id prefix, also used for the default file name")
	flags.StringVarP(&f.output, "output", "o", "", "Output file or directory")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Transform fully but write nothing")
	flags.Float64Var(&f.maxResidualRMS, "max-residual-rms", 0, "Drop events with residual_rms at or above this value (0 disables)")
	flags.StringVar(&f.sqlitePath, "sqlite", "", "Also store events in this SQLite database")

	return cmd
}

func runConvert(ctx context.Context, a *app, input string, f convertFlags, out io.Writer) error {
	metrics := observability.NewUnregisteredMetrics()
	normalizer := pipeline.NewNormalizer(domain.LoadOptions{MaxResidualRMS: f.maxResidualRMS}, a.logger, metrics, nil)

	var opts []pipeline.ConverterOption
	if !f.dryRun {
		if f.sqlitePath != "" {
			store, err := sqlite.Open(f.sqlitePath, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					a.logger.Error("sqlite close error", "error", err)
				}
			}()
			opts = append(opts, pipeline.WithStore(store))
		}
		if a.cfg.ObjectStoreEnabled() {
			uploader, err := objectstore.New(a.cfg, "", a.logger)
			if err != nil {
				return err
			}
			opts = append(opts, pipeline.WithUploader(uploader))
		}
	}

	conv := pipeline.NewConverter(normalizer, a.logger, opts...)
	res, err := conv.Convert(ctx, pipeline.ConvertOptions{
		InputPath:  input,
		OutputPath: f.output,
		Prefix:     f.prefix,
		DryRun:     f.dryRun,
	})
	if err != nil {
		return err
	}

	if f.dryRun {
		fmt.Fprintf(out, "Dry run: would write %d rows to %s\n", res.Rows, res.OutputPath)
		return nil
	}
	fmt.Fprintf(out, "Wrote %d rows to %s\n", res.Rows, res.OutputPath)
	if res.Degenerate > 0 {
		fmt.Fprintf(out, "Warning: %d event ids have an empty timestamp segment\n", res.Degenerate)
	}
	return nil
}
