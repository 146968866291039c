package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/liquidaciones/internal/config"
	"github.com/JonMunkholm/liquidaciones/internal/core"
	"github.com/JonMunkholm/liquidaciones/internal/database"
	"github.com/JonMunkholm/liquidaciones/internal/logging"
	"github.com/JonMunkholm/liquidaciones/internal/web/templates"
)

type options struct {
	files        map[core.TableKind]*string
	useDatabase  bool
	databaseURL  string
	format       string
	out          string
	unknownTitle string
	logLevel     string
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{files: make(map[core.TableKind]*string)}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile pending settlements against uncollected entry fees",
		Long: `Reconcile reads the shorts, registrations, sales and settlements tables
(CSV or XLSX) and writes one balance row per title: what the festival owes
the producer, what the producer owes in entry fees, and the net.

The balance is written to --out (stdout by default); the summary goes to stderr.`,
		Example: `  reconcile --shorts cortos.csv --registrations inscripciones.csv \
    --sales ventas.csv --settlements liquidaciones.csv --format csv-es --out balance.csv
  reconcile --database --format xlsx --out balance.xlsx`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, stdout, stderr)
		},
	}

	for _, def := range core.All() {
		kind := def.Info.Kind
		opts.files[kind] = cmd.Flags().String(string(kind), "", fmt.Sprintf("%s file (%s)", def.Info.Label, strings.Join(def.Columns(), ", ")))
	}
	cmd.Flags().BoolVar(&opts.useDatabase, "database", false, "read the tables from PostgreSQL instead of files")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL URL (default $DATABASE_URL)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: csv, csv-es or xlsx (default $REPORT_EXPORT_DIALECT)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&opts.unknownTitle, "unknown-title", "", "name shown for titles missing from the shorts table")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

func run(cmd *cobra.Command, opts *options, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.unknownTitle != "" {
		cfg.Report.UnknownTitle = opts.unknownTitle
	}
	if opts.databaseURL != "" {
		cfg.Database.URL = opts.databaseURL
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	slog.SetDefault(logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format))

	format := strings.ToLower(strings.TrimSpace(opts.format))
	if format == "" {
		format = cfg.Report.ExportDialect
	}
	if format != "xlsx" {
		if _, err := core.ParseDialect(format); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	var report *core.Report

	if opts.useDatabase {
		if !cfg.Database.Enabled() {
			return core.ErrNoDatabase
		}
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc, err := core.NewService(cfg, core.WithDatabase(pool))
		if err != nil {
			return err
		}
		if report, err = svc.ReconcileDatabase(ctx); err != nil {
			return userError(err)
		}
	} else {
		uploads, closeAll, err := openInputs(opts.files)
		if err != nil {
			return err
		}
		defer closeAll()

		svc, err := core.NewService(cfg)
		if err != nil {
			return err
		}
		report, err = svc.Reconcile(ctx, uploads)
		var missing *core.MissingTablesError
		if errors.As(err, &missing) {
			printGuidance(stderr, missing)
			return nil
		}
		if err != nil {
			return userError(err)
		}
	}

	if err := writeReport(stdout, opts.out, format, report); err != nil {
		return err
	}
	printSummary(stderr, report, templates.NewFormatter(cfg.Report.DisplayLocale, cfg.Report.CurrencySymbol))
	return nil
}

// openInputs opens every table file given on the command line.
func openInputs(files map[core.TableKind]*string) ([]core.Upload, func(), error) {
	var (
		uploads []core.Upload
		opened  []*os.File
	)
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, kind := range core.TableKinds {
		path := *files[kind]
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", kind, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, core.Upload{Kind: kind, FileName: path, Reader: f})
	}
	return uploads, closeAll, nil
}

func writeReport(stdout io.Writer, out, format string, report *core.Report) (err error) {
	w := stdout
	if out != "" && out != "-" {
		f, cerr := os.Create(out)
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if format == "xlsx" {
		return core.ExportXLSX(w, report)
	}
	dialect, err := core.ParseDialect(format)
	if err != nil {
		return err
	}
	return core.ExportCSV(w, report.Balances, dialect)
}

func printGuidance(w io.Writer, missing *core.MissingTablesError) {
	fmt.Fprintln(w, "Upload the four files to see the balance.")
	for _, kind := range missing.Missing {
		def, _ := core.Get(kind)
		fmt.Fprintf(w, "  --%-14s %s\n", kind, def.Info.Description)
	}
}

func printSummary(w io.Writer, report *core.Report, f templates.Formatter) {
	fmt.Fprintf(w, "Titles:                          %s\n", f.Count(len(report.Balances)))
	fmt.Fprintf(w, "Total a Transferir (Cash Out):   %s\n", f.Amount(report.Summary.CashOut))
	fmt.Fprintf(w, "Deuda Recuperada (Compensada):   %s\n", f.Amount(report.Summary.Compensated))
	fmt.Fprintf(w, "Deuda Fees Restante:             %s\n", f.Amount(report.Summary.OutstandingDebt))
	if n := report.Stats.OrphanedSettlements; n > 0 {
		fmt.Fprintf(w, "Settlements without a sale:      %s (left out)\n", f.Count(n))
	}
}

// userError adds the operator-facing message and code to a run error.
func userError(err error) error {
	msg := core.MapError(err)
	return fmt.Errorf("%s (%s): %w", msg.Message, msg.Code, err)
}
