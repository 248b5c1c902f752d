// Package xlsx reads the finance workbook from a local .xlsx file.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"finintel/internal/core"
	ports "finintel/internal/sheets"
)

// Reader serves the four input tables from a workbook on disk. The file is
// reopened when its size or modification time changes, so a long-running
// process sees edits made after Open.
type Reader struct {
	mu      sync.Mutex
	file    *excelize.File
	path    string
	size    int64
	modTime time.Time
	names   ports.TableNames
}

var _ ports.DatasetReader = (*Reader)(nil)

// Open opens the workbook at path. Blank table names fall back to the
// canonical sheet names.
func Open(path string, names ports.TableNames) (*Reader, error) {
	r := &Reader{path: path, names: names.WithDefaults()}
	if err := r.reloadIfChanged(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Sheets lists the sheet names present in the workbook.
func (r *Reader) Sheets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.GetSheetList()
}

// reloadIfChanged opens the workbook when it was never opened or the file on
// disk differs from the one loaded. Callers other than Open must hold r.mu.
func (r *Reader) reloadIfChanged() error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", r.path, err)
	}
	if r.file != nil && info.Size() == r.size && info.ModTime().Equal(r.modTime) {
		return nil
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", r.path, err)
	}
	if r.file != nil {
		_ = r.file.Close()
		slog.Debug("Workbook changed on disk, reloaded", "path", r.path, "size", info.Size())
	}
	r.file, r.size, r.modTime = f, info.Size(), info.ModTime()
	return nil
}

// rows returns the raw cell values of a sheet. Raw values keep dates as Excel
// serials and numbers unformatted.
func (r *Reader) rows(ctx context.Context, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.reloadIfChanged(); err != nil {
		return nil, err
	}
	rows, err := r.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func (r *Reader) ReadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.rows(ctx, r.names.Transactions)
	if err != nil {
		return nil, err
	}
	return ports.ParseTransactions(rows)
}

func (r *Reader) ReadCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.rows(ctx, r.names.Categories)
	if err != nil {
		return nil, err
	}
	return ports.ParseCategories(rows)
}

func (r *Reader) ReadMonthlyTargets(ctx context.Context) ([]core.BudgetTarget, error) {
	rows, err := r.rows(ctx, r.names.Targets)
	if err != nil {
		return nil, err
	}
	return ports.ParseMonthlyTargets(rows)
}

func (r *Reader) ReadMerchantRules(ctx context.Context) ([]core.MerchantRule, error) {
	rows, err := r.rows(ctx, r.names.Rules)
	if err != nil {
		return nil, err
	}
	return ports.ParseMerchantRules(rows)
}

// Write saves a dataset as a workbook with the four canonical sheets. It is
// used to export imported data and to build fixtures.
func Write(path string, ds core.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	names := ports.DefaultTableNames()
	if err := f.SetSheetName("Sheet1", names.Transactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, n := range []string{names.Categories, names.Targets, names.Rules} {
		if _, err := f.NewSheet(n); err != nil {
			return fmt.Errorf("create sheet %q: %w", n, err)
		}
	}

	tables := map[string][][]any{
		names.Transactions: transactionRows(ds.Transactions),
		names.Categories:   categoryRows(ds.Categories),
		names.Targets:      targetRows(ds.Targets),
		names.Rules:        ruleRows(ds.Rules),
	}
	for sheet, rows := range tables {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// Dates are written as native date cells and amounts as numbers so the
// workbook opens with usable columns in a spreadsheet application.
func transactionRows(txs []core.Transaction) [][]any {
	rows := [][]any{{ports.ColTransactionDate, ports.ColAmount, ports.ColCategory, ports.ColMerchant, ports.ColAccountBalance}}
	for _, t := range txs {
		rows = append(rows, []any{t.Date, t.Amount.InexactFloat64(), t.Category, t.Merchant, t.AccountBalance.InexactFloat64()})
	}
	return rows
}

func categoryRows(cats []core.Category) [][]any {
	rows := [][]any{{ports.ColCategory}}
	for _, c := range cats {
		rows = append(rows, []any{c.Name})
	}
	return rows
}

func targetRows(targets []core.BudgetTarget) [][]any {
	rows := [][]any{{ports.ColMonth, ports.ColRevenueTarget}}
	for _, b := range targets {
		rows = append(rows, []any{b.Month, b.RevenueTarget.InexactFloat64()})
	}
	return rows
}

func ruleRows(rules []core.MerchantRule) [][]any {
	rows := [][]any{{ports.ColMerchant, ports.ColRiskFlag}}
	for _, r := range rules {
		rows = append(rows, []any{r.Merchant, string(r.RiskFlag)})
	}
	return rows
}
