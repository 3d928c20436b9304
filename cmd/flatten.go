package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/transit-ingest/internal/app"
)

func newFlattenCmd() *cobra.Command {
	var opts app.FlattenOptions

	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Flatten NDJSON route records into the warehouse table",
		Long: `Reads newline-delimited route records from --input_path (a local file,
"-" for stdin, or a gs:// object) or from --input_subscription, and appends
one row per schedule window, stop and service to --output_table.
Malformed lines are logged and skipped; a warehouse failure stops the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.InputPath != "" && opts.InputSubscription != "" {
				return errors.New("--input_path and --input_subscription are mutually exclusive")
			}
			return runFlattenCommand(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.InputPath, "input_path", "", "NDJSON input: local path, - for stdin, or gs://bucket/object")
	cmd.Flags().StringVar(&opts.InputSubscription, "input_subscription", "", "Pub/Sub subscription ID to stream from")
	cmd.Flags().StringVar(&opts.OutputTable, "output_table", "", "destination table (project:dataset.table, or a Postgres table name)")
	return cmd
}

func runFlattenCommand(cmd *cobra.Command, opts app.FlattenOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	stats, err := appInstance.RunFlatten(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("run flatten: %w", err)
	}
	appInstance.Logger().Info("flatten command finished",
		zap.Int("lines", stats.Lines),
		zap.Int("rows", stats.Rows),
		zap.Int("parse_errors", stats.ParseErrors),
		zap.Int("expansion_errors", stats.ExpansionErrors),
	)
	return nil
}
