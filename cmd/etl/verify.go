package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/localized-events-etl/internal/verify"
	"github.com/spf13/cobra"
)

var errVerificationFailed = errors.New("verification failed")

func verifyCommand(a *app) *cobra.Command {
	var opts verify.Options

	cmd := &cobra.Command{
		Use:   "verify <json_file> <csv_file>",
		Short: "Check a metadata table against its localization results file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("prefix") {
				opts.Prefix = a.cfg.EventIDPrefix
			}
			if !cmd.Flags().Changed("max-residual-rms") {
				opts.MaxResidualRMS = a.cfg.MaxResidualRMS
			}

			input, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			table, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open table: %w", err)
			}
			defer table.Close()

			report, err := verify.Run(input, table, opts)
			if err != nil {
				return err
			}
			report.Write(cmd.OutOrStdout())
			if !report.Passed() {
				return errVerificationFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Prefix, "prefix", "p", "", "Event id prefix the table was produced with")
	cmd.Flags().Float64Var(&opts.MaxResidualRMS, "max-residual-rms", 0, "Residual filter the table was produced with")

	return cmd
}
