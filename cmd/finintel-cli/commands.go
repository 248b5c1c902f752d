package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"finintel/internal/backend"
	"finintel/internal/core"
	"finintel/internal/log"
	"finintel/internal/pipeline"
	"finintel/internal/services"
	"finintel/internal/sheets/memory"
	"finintel/internal/sheets/xlsx"
	"finintel/internal/storage"
)

func (g *Globals) logger() *log.Logger {
	level, _ := log.ParseLevel(g.LogLevel)
	logger := log.New(log.Config{Level: level, Format: g.LogFormat, Component: log.ComponentCLI, Output: os.Stderr})
	log.SetDefault(logger)
	return logger
}

// Source selects where the dataset is read from.
type Source struct {
	Workbook    string `short:"w" type:"existingfile" help:"Workbook (.xlsx) with transactions, categories, monthly_targets and merchant_rules sheets." xor:"source"`
	DB          string `name:"db" help:"SQLite database previously filled by import." xor:"source"`
	Spreadsheet string `help:"Google spreadsheet ID (credentials from GOOGLE_SERVICE_ACCOUNT_JSON or _FILE)." xor:"source"`
	DataDir     string `name:"data-dir" help:"Directory with <table>.csv files; the demo dataset is used when empty." xor:"source"`
}

func (s Source) backendConfig() backend.Config {
	switch {
	case s.Workbook != "":
		return backend.Config{Type: backend.XLSXBackend, WorkbookPath: s.Workbook}
	case s.DB != "":
		return backend.Config{Type: backend.SQLiteBackend, SQLiteDBPath: s.DB}
	case s.Spreadsheet != "":
		return backend.Config{Type: backend.SheetsBackend, GoogleSpreadsheetID: s.Spreadsheet}
	}
	return backend.Config{Type: backend.MemoryBackend, DataDirectory: s.DataDir}
}

func (s Source) load(ctx context.Context, logger *log.Logger) (core.Dataset, error) {
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, s.backendConfig())
	if err != nil {
		return core.Dataset{}, err
	}
	defer res.Close()
	return services.LoadDataset(ctx, res.Reader)
}

type importCmd struct {
	Workbook string `short:"w" required:"" type:"existingfile" help:"Workbook (.xlsx) to import."`
	DB       string `name:"db" default:"./data/finintel.db" env:"SQLITE_DB_PATH" help:"SQLite database path."`
}

func (c *importCmd) Run(g *Globals) error {
	ctx := context.Background()
	logger := g.logger()

	ds, err := Source{Workbook: c.Workbook}.load(ctx, logger)
	if err != nil {
		return fmt.Errorf("load workbook: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(c.DB)
	if err != nil {
		return err
	}
	defer repo.Close()

	rec, err := repo.ImportDatasetFrom(ctx, ds, c.Workbook)
	if err != nil {
		return fmt.Errorf("import dataset: %w", err)
	}
	log.NewStructuredLogger(logger).LogDatasetImported(ctx, c.Workbook, ds)
	fmt.Fprintf(os.Stdout, "imported %d transactions into %s (import %s)\n", rec.Transactions, c.DB, rec.ID)
	return nil
}

// Report sections selectable with --section.
const (
	sectionAll        = "all"
	sectionSummary    = "summary"
	sectionMonthly    = "monthly"
	sectionCategories = "categories"
	sectionMerchants  = "merchants"
	sectionRisk       = "risk"
	sectionBudget     = "budget"
	sectionBalance    = "balance"
)

type reportCmd struct {
	Source  `embed:""`
	Section string `short:"s" default:"all" enum:"all,summary,monthly,categories,merchants,risk,budget,balance" help:"Report section to print."`
	Compact bool   `help:"Print compact JSON."`
}

func (c *reportCmd) Run(g *Globals) error {
	ctx := context.Background()
	logger := g.logger()

	ds, err := c.Source.load(ctx, logger)
	if err != nil {
		return err
	}
	report := pipeline.Run(ds)
	report.Fingerprint = services.Fingerprint(ds)
	if len(report.UnknownCategories) > 0 {
		logger.WarnContext(ctx, "Transactions reference unknown categories", log.FieldCategories, report.UnknownCategories)
	}
	return writeSection(os.Stdout, report, c.Section, !c.Compact)
}

func writeSection(w io.Writer, r core.Report, section string, indent bool) error {
	var v any
	switch section {
	case sectionAll:
		v = r
	case sectionSummary:
		v = r.Summary
	case sectionMonthly:
		v = r.Monthly
	case sectionCategories:
		v = r.ExpensesByCategory
	case sectionMerchants:
		v = r.NetByMerchant
	case sectionRisk:
		v = r.Risk
	case sectionBudget:
		v = r.Budget
	case sectionBalance:
		v = r.Balance
	default:
		return fmt.Errorf("unknown section %q", section)
	}
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

type demoCmd struct {
	Out string `short:"o" default:"./data/finance.xlsx" help:"Workbook path to write."`
}

func (c *demoCmd) Run(g *Globals) error {
	logger := g.logger()
	if err := os.MkdirAll(filepath.Dir(c.Out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := xlsx.Write(c.Out, memory.Demo()); err != nil {
		return err
	}
	logger.InfoContext(context.Background(), "Demo workbook written", "path", c.Out)
	return nil
}
