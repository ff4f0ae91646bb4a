package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/classify"
	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/ingest"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/monitoring"
	"github.com/sells-group/recon-cli/internal/reconcile"
	"github.com/sells-group/recon-cli/internal/report"
	"github.com/sells-group/recon-cli/internal/store"
)

// reconcileOptions are the inputs of one reconcile invocation.
type reconcileOptions struct {
	Orders    string
	Invoices  []string
	Counts    string
	Overrides string
	RunIDFmt  string
	OutputDir string
	CSV       bool
}

// reconcileResult is what a run produced.
type reconcileResult struct {
	Run      model.Run
	Records  []model.Record
	Workbook string
	CSV      string
	Stats    map[string]ingest.Stats
	Alerts   []monitoring.Alert
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile orders, invoices and dock counts",
	Long:  "Reads the order workbook, the NF-e XML files and optionally a dock count sheet, reconciles them per store and supplier, persists the run and writes the audit workbook.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		opts, err := reconcileOptionsFromFlags(cmd, cfg)
		if err != nil {
			return err
		}

		var st store.Store
		if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		res, err := runReconcile(ctx, st, cfg, opts, time.Now())
		if err != nil {
			return err
		}

		formatReconcileResult(os.Stdout, res)
		return nil
	},
}

func init() {
	registerReconcileFlags(reconcileCmd)
	_ = reconcileCmd.MarkFlagRequired("orders")
	_ = reconcileCmd.MarkFlagRequired("invoices")

	rootCmd.AddCommand(reconcileCmd)
}

func registerReconcileFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("orders", "", "order workbook (.xlsx), one sheet per store")
	f.StringSlice("invoices", nil, "NF-e XML files or directories holding them")
	f.String("counts", "", "optional dock count sheet (.csv or .xlsx)")
	f.String("overrides", "", "YAML file with extra unit overrides (default from config)")
	f.String("run-id-format", "", "run id format: timestamp or uuid (default from config)")
	f.String("output-dir", "", "directory for the audit workbook (default from config)")
	f.StringSlice("exclude-store", nil, "store ids to leave out (default from config)")
	f.Bool("csv", false, "also write a flat CSV export")
	f.Bool("no-save", false, "do not persist the run")
}

// reconcileOptionsFromFlags merges command flags over configuration.
func reconcileOptionsFromFlags(cmd *cobra.Command, c *config.Config) (reconcileOptions, error) {
	flags := cmd.Flags()
	opts := reconcileOptions{
		Overrides: c.Reconcile.OverridesPath,
		RunIDFmt:  c.Reconcile.RunIDFormat,
		OutputDir: c.Report.OutputDir,
	}
	opts.Orders, _ = flags.GetString("orders")
	opts.Invoices, _ = flags.GetStringSlice("invoices")
	opts.Counts, _ = flags.GetString("counts")
	opts.CSV, _ = flags.GetBool("csv")

	if v, _ := flags.GetString("overrides"); v != "" {
		opts.Overrides = v
	}
	if v, _ := flags.GetString("run-id-format"); v != "" {
		opts.RunIDFmt = v
	}
	if v, _ := flags.GetString("output-dir"); v != "" {
		opts.OutputDir = v
	}
	if flags.Changed("exclude-store") {
		c.Ingest.ExcludedStores, _ = flags.GetStringSlice("exclude-store")
	}

	if opts.Orders == "" {
		return opts, eris.New("reconcile: --orders is required")
	}
	if len(opts.Invoices) == 0 {
		return opts, eris.New("reconcile: --invoices is required")
	}
	return opts, nil
}

// runReconcile ingests the sources, runs the engine, saves the run when st is
// non-nil and writes the report files.
func runReconcile(ctx context.Context, st store.Store, c *config.Config, opts reconcileOptions, now time.Time) (*reconcileResult, error) {
	log := zap.L().With(zap.String("orders", opts.Orders))

	overrides := slices.Clone(classify.DefaultOverrides)
	if opts.Overrides != "" {
		extra, err := classify.LoadOverrides(opts.Overrides)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, extra...)
	}

	stats := make(map[string]ingest.Stats)

	orders, orderStats, err := ingest.ReadOrderWorkbook(opts.Orders, ingest.OrderOptions{Sheets: c.Ingest.OrderSheets})
	if err != nil {
		return nil, err
	}
	stats["orders"] = orderStats

	paths, err := ingest.InvoicePaths(opts.Invoices)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, eris.New("reconcile: no NF-e files found")
	}
	invoices, invoiceStats, err := ingest.LoadInvoices(ctx, paths, c.Ingest.XMLWorkers)
	if err != nil {
		return nil, err
	}
	stats["invoices"] = invoiceStats

	var counts []model.CountLine
	if opts.Counts != "" {
		var countStats ingest.Stats
		counts, countStats, err = ingest.ReadCounts(ctx, opts.Counts, ingest.CountOptions{Delimiter: c.CountDelimiterRune()})
		if err != nil {
			return nil, err
		}
		if counts == nil {
			counts = []model.CountLine{}
		}
		stats["counts"] = countStats
	}

	excluded := c.Ingest.ExcludedStores
	in := reconcile.Input{
		Orders:   ingest.ExcludeStores(orders, excluded),
		Invoices: ingest.ExcludeStores(invoices, excluded),
		Counts:   ingest.ExcludeStores(counts, excluded),
	}
	for _, name := range []string{"orders", "invoices", "counts"} {
		s, ok := stats[name]
		if !ok {
			continue
		}
		log.Info("reconcile: source ingested",
			zap.String("source", name),
			zap.Int("sources", s.Sources),
			zap.Int("skipped", s.Skipped),
			zap.Int("lines", s.Lines),
			zap.Int("invalid", s.Invalid),
		)
	}

	runID, err := reconcile.NewRunID(opts.RunIDFmt, now)
	if err != nil {
		return nil, err
	}
	records, err := reconcile.NewEngine(overrides).Run(runID, in)
	if err != nil {
		return nil, err
	}

	run := model.NewRun(runID, now.UTC(), len(in.Orders), len(in.Invoices), len(in.Counts), records)
	if st != nil {
		if err := st.SaveRun(ctx, run, records); err != nil {
			return nil, err
		}
	}

	res := &reconcileResult{Run: run, Records: records, Stats: stats}
	res.Workbook, res.CSV, err = writeReports(opts.OutputDir, runID, records, opts.CSV)
	if err != nil {
		return nil, err
	}

	log.Info("reconcile: run saved",
		zap.String("run_id", runID),
		zap.Int("records", run.Records),
		zap.Int("divergent", run.Divergent),
		zap.String("workbook", res.Workbook),
	)

	res.Alerts = raiseAlerts(ctx, c.Monitoring, monitoring.Summarize(runID, records))
	return res, nil
}

// raiseAlerts evaluates snap, logs every alert and sends them to the
// configured webhook.
func raiseAlerts(ctx context.Context, mc config.MonitoringConfig, snap *monitoring.Snapshot) []monitoring.Alert {
	alerter := monitoring.NewAlerter(mc)
	alerts := alerter.Evaluate(snap)
	for _, a := range alerts {
		zap.L().Warn("monitoring: alert raised",
			zap.String("run_id", a.RunID),
			zap.String("type", string(a.Type)),
			zap.String("message", a.Message),
		)
	}
	alerter.SendAlerts(ctx, alerts)
	return alerts
}

// writeReports writes the audit workbook and, when withCSV is set, the CSV
// export into dir. It returns the paths written.
func writeReports(dir, runID string, records []model.Record, withCSV bool) (string, string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", eris.Wrapf(err, "report: create %s", dir)
	}

	workbook := filepath.Join(dir, fmt.Sprintf("auditoria_%s.xlsx", runID))
	if err := report.SaveWorkbook(workbook, records); err != nil {
		return "", "", err
	}
	if !withCSV {
		return workbook, "", nil
	}

	csvPath := filepath.Join(dir, fmt.Sprintf("auditoria_%s.csv", runID))
	f, err := os.Create(csvPath)
	if err != nil {
		return "", "", eris.Wrapf(err, "report: create %s", csvPath)
	}
	defer f.Close() //nolint:errcheck

	sorted := slices.Clone(records)
	report.Sort(sorted)
	if err := report.WriteCSV(f, sorted); err != nil {
		return "", "", err
	}
	return workbook, csvPath, nil
}

// formatReconcileResult writes a short run summary to w.
func formatReconcileResult(out io.Writer, res *reconcileResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.Run.ID)
	_, _ = fmt.Fprintf(w, "Order lines:\t%d\n", res.Run.OrderLines)
	_, _ = fmt.Fprintf(w, "Invoice lines:\t%d\n", res.Run.InvoiceLines)
	if res.Run.CountLines > 0 {
		_, _ = fmt.Fprintf(w, "Count lines:\t%d\n", res.Run.CountLines)
	}
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", res.Run.Records)
	_, _ = fmt.Fprintf(w, "Divergent:\t%d\n", res.Run.Divergent)
	if s, ok := res.Stats["invoices"]; ok && s.Skipped > 0 {
		_, _ = fmt.Fprintf(w, "Skipped NF-e files:\t%d\n", s.Skipped)
	}
	_, _ = fmt.Fprintf(w, "Workbook:\t%s\n", res.Workbook)
	if res.CSV != "" {
		_, _ = fmt.Fprintf(w, "CSV:\t%s\n", res.CSV)
	}
	for _, a := range res.Alerts {
		_, _ = fmt.Fprintf(w, "Alert:\t%s\n", a.Message)
	}
	_ = w.Flush()
}
