package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finintel/internal/core"
	"finintel/internal/pipeline"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "finintel.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleDataset() core.Dataset {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	dec := decimal.RequireFromString
	return core.Dataset{
		Transactions: []core.Transaction{
			{Date: day(1, 5), Amount: dec("1000"), Category: "Sales", Merchant: "Acme", AccountBalance: dec("1000")},
			{Date: day(1, 20), Amount: dec("-300"), Category: "Rent", Merchant: "Landlord", AccountBalance: dec("700")},
			{Date: day(2, 10), Amount: dec("-50"), Category: "Utilities", Merchant: "PowerCo", AccountBalance: dec("650")},
		},
		Categories: []core.Category{{Name: "Sales"}, {Name: "Rent"}, {Name: "Utilities"}},
		Targets:    []core.BudgetTarget{{Month: day(1, 1), RevenueTarget: dec("1200.50")}},
		Rules:      []core.MerchantRule{{Merchant: "Acme", RiskFlag: "low"}, {Merchant: "Landlord", RiskFlag: ""}},
	}
}

func TestImportAndReadBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ds := sampleDataset()

	if err := repo.ImportDataset(ctx, ds); err != nil {
		t.Fatalf("import: %v", err)
	}

	txs, err := repo.ReadTransactions(ctx)
	if err != nil {
		t.Fatalf("read transactions: %v", err)
	}
	if len(txs) != len(ds.Transactions) {
		t.Fatalf("got %d transactions, want %d", len(txs), len(ds.Transactions))
	}
	for i := range txs {
		got, want := txs[i], ds.Transactions[i]
		if !got.Date.Equal(want.Date) || !got.Amount.Equal(want.Amount) || got.Merchant != want.Merchant ||
			got.Category != want.Category || !got.AccountBalance.Equal(want.AccountBalance) {
			t.Fatalf("row %d: got %+v, want %+v", i, got, want)
		}
	}

	cats, err := repo.ReadCategories(ctx)
	if err != nil || len(cats) != 3 || cats[2].Name != "Utilities" {
		t.Fatalf("categories: %v %+v", err, cats)
	}
	targets, err := repo.ReadMonthlyTargets(ctx)
	if err != nil || len(targets) != 1 || targets[0].RevenueTarget.String() != "1200.5" {
		t.Fatalf("targets: %v %+v", err, targets)
	}
	rules, err := repo.ReadMerchantRules(ctx)
	if err != nil || len(rules) != 2 || rules[1].RiskFlag.Rated() {
		t.Fatalf("rules: %v %+v", err, rules)
	}
}

func TestImportReplacesPreviousData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ImportDataset(ctx, sampleDataset()); err != nil {
		t.Fatalf("first import: %v", err)
	}
	smaller := sampleDataset()
	smaller.Transactions = smaller.Transactions[:1]
	smaller.Rules = nil
	rec, err := repo.ImportDatasetFrom(ctx, smaller, "second.xlsx")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}

	txs, _ := repo.ReadTransactions(ctx)
	rules, _ := repo.ReadMerchantRules(ctx)
	if len(txs) != 1 || len(rules) != 0 {
		t.Fatalf("expected replaced tables, got %d transactions and %d rules", len(txs), len(rules))
	}

	last, err := repo.LastImport(ctx)
	if err != nil {
		t.Fatalf("last import: %v", err)
	}
	if last.ID != rec.ID || last.Source != "second.xlsx" || last.Transactions != 1 {
		t.Fatalf("unexpected import record: %+v", last)
	}
}

func TestImportInvalidDatasetKeepsExistingData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.ImportDataset(ctx, sampleDataset()); err != nil {
		t.Fatalf("import: %v", err)
	}

	bad := sampleDataset()
	bad.Transactions = append(bad.Transactions, core.Transaction{})
	if err := repo.ImportDataset(ctx, bad); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	txs, _ := repo.ReadTransactions(ctx)
	if len(txs) != 3 {
		t.Fatalf("existing data must survive a rejected import, got %d rows", len(txs))
	}
}

func TestLastImportEmpty(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.LastImport(context.Background()); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestEmptyDatabaseReadsEmptyTables(t *testing.T) {
	repo := newTestRepo(t)
	txs, err := repo.ReadTransactions(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected no rows, got %d", len(txs))
	}
}

func TestStoredDatasetProducesSameReport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ds := sampleDataset()
	if err := repo.ImportDataset(ctx, ds); err != nil {
		t.Fatalf("import: %v", err)
	}

	var loaded core.Dataset
	var err error
	if loaded.Transactions, err = repo.ReadTransactions(ctx); err != nil {
		t.Fatal(err)
	}
	if loaded.Categories, err = repo.ReadCategories(ctx); err != nil {
		t.Fatal(err)
	}
	if loaded.Targets, err = repo.ReadMonthlyTargets(ctx); err != nil {
		t.Fatal(err)
	}
	if loaded.Rules, err = repo.ReadMerchantRules(ctx); err != nil {
		t.Fatal(err)
	}

	want := pipeline.Run(ds).Summary
	got := pipeline.Run(loaded).Summary
	if !got.NetProfit.Equal(want.NetProfit) || !got.EndingBalance.Decimal.Equal(want.EndingBalance.Decimal) {
		t.Fatalf("summary mismatch: got %+v, want %+v", got, want)
	}
}

func TestReopenRunsMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finintel.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.ImportDataset(context.Background(), sampleDataset()); err != nil {
		t.Fatalf("import: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	txs, err := repo.ReadTransactions(context.Background())
	if err != nil || len(txs) != 3 {
		t.Fatalf("expected persisted rows after reopen: %v (%d)", err, len(txs))
	}
}
