package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate the audit workbook of a saved run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runID, _ := cmd.Flags().GetString("run")
		if runID == "" {
			return eris.New("report: --run is required")
		}
		dir, _ := cmd.Flags().GetString("output-dir")
		if dir == "" {
			dir = cfg.Report.OutputDir
		}
		withCSV, _ := cmd.Flags().GetBool("csv")

		st, err := validatedStore(ctx, "report")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		records, err := st.ListRecords(ctx, store.RecordFilter{RunID: run.ID})
		if err != nil {
			return eris.Wrap(err, "report")
		}

		workbook, csvPath, err := writeReports(dir, run.ID, records, withCSV)
		if err != nil {
			return err
		}
		zap.L().Info("report: written",
			zap.String("run_id", run.ID),
			zap.Int("records", len(records)),
			zap.String("workbook", workbook),
		)

		fmt.Fprintln(os.Stdout, workbook)
		if csvPath != "" {
			fmt.Fprintln(os.Stdout, csvPath)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().String("run", "", "run id to report on")
	reportCmd.Flags().String("output-dir", "", "directory for the generated files (default from config)")
	reportCmd.Flags().Bool("csv", false, "also write a flat CSV export")
	_ = reportCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(reportCmd)
}
