package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finintel/internal/core"
	ports "finintel/internal/sheets"

	_ "modernc.org/sqlite"
)

// Dates are stored as RFC 3339 text so the time of day and zone survive.
const dateLayout = time.RFC3339

// SQLiteRepository stores the input tables of the last imported dataset.
// Derived report data is never written here.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ports.DatasetReader = (*SQLiteRepository)(nil)
	_ ports.DatasetWriter = (*SQLiteRepository)(nil)
)

// ImportRecord describes one ImportDataset call.
type ImportRecord struct {
	ID           string
	Source       string
	Transactions int
	Categories   int
	Targets      int
	Rules        int
	ImportedAt   time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ImportDataset implements sheets.DatasetWriter. The four tables are replaced
// atomically.
func (r *SQLiteRepository) ImportDataset(ctx context.Context, ds core.Dataset) error {
	_, err := r.ImportDatasetFrom(ctx, ds, "")
	return err
}

// ImportDatasetFrom replaces the stored tables and records the import with its
// source label.
func (r *SQLiteRepository) ImportDatasetFrom(ctx context.Context, ds core.Dataset, source string) (ImportRecord, error) {
	if err := ds.Validate(); err != nil {
		return ImportRecord{}, fmt.Errorf("validate dataset: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportRecord{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "categories", "monthly_targets", "merchant_rules"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return ImportRecord{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, t := range ds.Transactions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (row_num, transaction_date, amount, category, merchant, account_balance)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			i, t.Date.Format(dateLayout), t.Amount.String(), t.Category, t.Merchant, t.AccountBalance.String())
		if err != nil {
			return ImportRecord{}, fmt.Errorf("insert transaction %d: %w", i+1, err)
		}
	}
	for i, c := range ds.Categories {
		if _, err := tx.ExecContext(ctx, `INSERT INTO categories (row_num, category) VALUES (?, ?)`, i, c.Name); err != nil {
			return ImportRecord{}, fmt.Errorf("insert category %d: %w", i+1, err)
		}
	}
	for i, b := range ds.Targets {
		_, err := tx.ExecContext(ctx, `INSERT INTO monthly_targets (row_num, month, revenue_target) VALUES (?, ?, ?)`,
			i, b.Month.Format(dateLayout), b.RevenueTarget.String())
		if err != nil {
			return ImportRecord{}, fmt.Errorf("insert target %d: %w", i+1, err)
		}
	}
	for i, m := range ds.Rules {
		_, err := tx.ExecContext(ctx, `INSERT INTO merchant_rules (row_num, merchant, risk_flag) VALUES (?, ?, ?)`,
			i, m.Merchant, string(m.RiskFlag))
		if err != nil {
			return ImportRecord{}, fmt.Errorf("insert merchant rule %d: %w", i+1, err)
		}
	}

	rec := ImportRecord{
		ID:           uuid.NewString(),
		Source:       source,
		Transactions: len(ds.Transactions),
		Categories:   len(ds.Categories),
		Targets:      len(ds.Targets),
		Rules:        len(ds.Rules),
		ImportedAt:   time.Now().UTC().Truncate(time.Second),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO imports (id, source, transactions, categories, targets, rules, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.Transactions, rec.Categories, rec.Targets, rec.Rules, rec.ImportedAt.Format(dateLayout))
	if err != nil {
		return ImportRecord{}, fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportRecord{}, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Dataset imported to SQLite",
		"import_id", rec.ID,
		"source", source,
		"transactions", rec.Transactions,
		"categories", rec.Categories,
		"targets", rec.Targets,
		"rules", rec.Rules)
	return rec, nil
}

// LastImport returns the most recent import record, or sql.ErrNoRows when the
// database has never been loaded.
func (r *SQLiteRepository) LastImport(ctx context.Context) (ImportRecord, error) {
	var rec ImportRecord
	var at string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, transactions, categories, targets, rules, imported_at
		 FROM imports ORDER BY imported_at DESC, rowid DESC LIMIT 1`).
		Scan(&rec.ID, &rec.Source, &rec.Transactions, &rec.Categories, &rec.Targets, &rec.Rules, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ImportRecord{}, err
		}
		return ImportRecord{}, fmt.Errorf("get last import: %w", err)
	}
	if rec.ImportedAt, err = time.Parse(dateLayout, at); err != nil {
		return ImportRecord{}, fmt.Errorf("parse import time: %w", err)
	}
	return rec, nil
}

// ReadTransactions implements sheets.DatasetReader
func (r *SQLiteRepository) ReadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT transaction_date, amount, category, merchant, account_balance
		 FROM transactions ORDER BY row_num`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var date, amount, balance string
		var t core.Transaction
		if err := rows.Scan(&date, &amount, &t.Category, &t.Merchant, &balance); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		if t.AccountBalance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse account balance %q: %w", balance, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReadCategories implements sheets.DatasetReader
func (r *SQLiteRepository) ReadCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category FROM categories ORDER BY row_num`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReadMonthlyTargets implements sheets.DatasetReader
func (r *SQLiteRepository) ReadMonthlyTargets(ctx context.Context) ([]core.BudgetTarget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT month, revenue_target FROM monthly_targets ORDER BY row_num`)
	if err != nil {
		return nil, fmt.Errorf("query monthly targets: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetTarget
	for rows.Next() {
		var month, target string
		if err := rows.Scan(&month, &target); err != nil {
			return nil, fmt.Errorf("scan monthly target: %w", err)
		}
		var b core.BudgetTarget
		if b.Month, err = time.Parse(dateLayout, month); err != nil {
			return nil, fmt.Errorf("parse target month %q: %w", month, err)
		}
		if b.RevenueTarget, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("parse revenue target %q: %w", target, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ReadMerchantRules implements sheets.DatasetReader
func (r *SQLiteRepository) ReadMerchantRules(ctx context.Context) ([]core.MerchantRule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT merchant, risk_flag FROM merchant_rules ORDER BY row_num`)
	if err != nil {
		return nil, fmt.Errorf("query merchant rules: %w", err)
	}
	defer rows.Close()

	var out []core.MerchantRule
	for rows.Next() {
		var m core.MerchantRule
		var flag string
		if err := rows.Scan(&m.Merchant, &flag); err != nil {
			return nil, fmt.Errorf("scan merchant rule: %w", err)
		}
		m.RiskFlag = core.RiskFlag(flag)
		out = append(out, m)
	}
	return out, rows.Err()
}
