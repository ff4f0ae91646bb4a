package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/monitoring"
	"github.com/sells-group/recon-cli/internal/report"
	"github.com/sells-group/recon-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect reconciliation run history",
	Long:  "Commands for listing, viewing, and summarizing persisted reconciliation runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reconciliation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := validatedStore(ctx, "runs")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.RunFilter{Limit: limit, Offset: offset}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

// runDetail is the document printed by runs show.
type runDetail struct {
	Run     *model.Run     `json:"run" yaml:"run"`
	Records []model.Record `json:"records,omitempty" yaml:"records,omitempty"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := validatedStore(ctx, "runs")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		filter := store.RecordFilter{RunID: run.ID}
		filter.StoreID, _ = cmd.Flags().GetString("store")
		filter.Supplier, _ = cmd.Flags().GetString("supplier")
		filter.DivergentOnly, _ = cmd.Flags().GetBool("divergent")

		records, err := st.ListRecords(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		output, _ := cmd.Flags().GetString("output")
		return writeRunDetail(os.Stdout, output, runDetail{Run: run, Records: records})
	},
}

// -- runs summary --

var runsSummaryCmd = &cobra.Command{
	Use:   "summary <run-id>",
	Short: "Show status counts and the divergence dashboard of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := validatedStore(ctx, "runs")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		counts, err := st.Summary(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs summary")
		}
		records, err := st.ListRecords(ctx, store.RecordFilter{RunID: args[0], DivergentOnly: true})
		if err != nil {
			return eris.Wrap(err, "runs summary")
		}

		formatSummary(os.Stdout, counts, report.Dashboard(records))
		return nil
	},
}

// -- runs check --

var runsCheckCmd = &cobra.Command{
	Use:   "check <run-id>",
	Short: "Evaluate divergence alerts for a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := validatedStore(ctx, "runs")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs check")
		}

		alerts := raiseAlerts(ctx, cfg.Monitoring, snap)
		if len(alerts) == 0 {
			fmt.Fprintln(os.Stdout, "No alerts.")
			return nil
		}
		for _, a := range alerts {
			fmt.Fprintf(os.Stdout, "[%s] %s\n", a.Severity, a.Message)
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().Duration("since", 0, "only runs created within this window (e.g. 24h, 168h)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsShowCmd.Flags().StringP("output", "o", "json", "output format: json or yaml")
	runsShowCmd.Flags().String("store", "", "only records of this store")
	runsShowCmd.Flags().String("supplier", "", "only records of this canonical supplier")
	runsShowCmd.Flags().Bool("divergent", false, "only divergent records")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsSummaryCmd)
	runsCmd.AddCommand(runsCheckCmd)
	rootCmd.AddCommand(runsCmd)
}

// writeRunDetail encodes d to out as json or yaml.
func writeRunDetail(out io.Writer, format string, d runDetail) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return eris.Wrap(err, "runs show: encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("runs show: unknown output format %q", format)
	}
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tORDERS\tINVOICES\tCOUNTS\tRECORDS\tDIVERGENT")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t--------\t------\t-------\t---------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			truncateID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.OrderLines,
			r.InvoiceLines,
			r.CountLines,
			r.Records,
			r.Divergent,
		)
	}
	_ = w.Flush()
}

// formatSummary writes status counts and dashboard rows to w.
func formatSummary(out io.Writer, counts []model.StatusCount, rows []report.DashboardRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	var total int
	for _, c := range counts {
		total += c.Count
	}
	_, _ = fmt.Fprintf(w, "Total records:\t%d\n", total)
	for _, c := range counts {
		_, _ = fmt.Fprintf(w, "  Status %d:\t%d\n", c.Code, c.Count)
	}

	if len(rows) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "STORE\tSUPPLIER\tITEMS\tNET")
		for _, r := range rows {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.StoreID, r.Supplier, r.Items, formatNet(r.Net))
		}
	}
	_ = w.Flush()
}

func formatNet(f float64) string {
	if f > 0 {
		return "+" + fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprintf("%.2f", f)
}

// truncateID shortens UUID run ids for compact display. Timestamp ids are
// shown whole.
func truncateID(id string) string {
	if len(id) == 36 {
		return id[:8]
	}
	return id
}
