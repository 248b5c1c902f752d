package xlsx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"finintel/internal/core"
	ports "finintel/internal/sheets"
	"finintel/internal/sheets/memory"
)

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finance.xlsx")
	ds := memory.Demo()
	if err := Write(path, ds); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := Open(path, ports.TableNames{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	txs, err := r.ReadTransactions(ctx)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != len(ds.Transactions) {
		t.Fatalf("got %d transactions, want %d", len(txs), len(ds.Transactions))
	}
	for i := range txs {
		if !txs[i].Date.Equal(ds.Transactions[i].Date) || !txs[i].Amount.Equal(ds.Transactions[i].Amount) {
			t.Fatalf("row %d mismatch: got %+v want %+v", i, txs[i], ds.Transactions[i])
		}
	}

	cats, err := r.ReadCategories(ctx)
	if err != nil || len(cats) != len(ds.Categories) {
		t.Fatalf("categories: %v (%d)", err, len(cats))
	}
	targets, err := r.ReadMonthlyTargets(ctx)
	if err != nil || len(targets) != len(ds.Targets) {
		t.Fatalf("targets: %v (%d)", err, len(targets))
	}
	rules, err := r.ReadMerchantRules(ctx)
	if err != nil || len(rules) != len(ds.Rules) {
		t.Fatalf("rules: %v (%d)", err, len(rules))
	}
}

func TestReadNativeDateCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "native.xlsx")
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "transactions"); err != nil {
		t.Fatal(err)
	}
	header := []any{"transaction_date", "amount", "category", "merchant", "account_balance"}
	row := []any{time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), -50, "Utilities", "PowerCo", 650}
	if err := f.SetSheetRow("transactions", "A1", &header); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("transactions", "A2", &row); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r, err := Open(path, ports.TableNames{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	txs, err := r.ReadTransactions(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d rows", len(txs))
	}
	if core.MonthOf(txs[0].Date) != "2024-02" || txs[0].Date.Day() != 10 {
		t.Fatalf("unexpected date %v", txs[0].Date)
	}
	if txs[0].Amount.String() != "-50" {
		t.Fatalf("unexpected amount %s", txs[0].Amount)
	}
}

func TestMissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	f := excelize.NewFile()
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r, err := Open(path, ports.TableNames{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if _, err := r.ReadMerchantRules(context.Background()); err == nil {
		t.Fatal("expected error for a missing sheet")
	}
}

func TestMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cols.xlsx")
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "merchant_rules"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("merchant_rules", "A1", "merchant"); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r, err := Open(path, ports.TableNames{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	_, err = r.ReadMerchantRules(context.Background())
	if !errors.Is(err, core.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"), ports.TableNames{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestWrite_KeepsTimeOfDayAndNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intraday.xlsx")
	ds := core.Dataset{Transactions: []core.Transaction{
		{Date: time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), Amount: decimal.RequireFromString("1000"), Category: "Sales", Merchant: "Acme", AccountBalance: decimal.RequireFromString("1000")},
		{Date: time.Date(2024, 1, 5, 17, 45, 0, 0, time.UTC), Amount: decimal.RequireFromString("-240.35"), Category: "Utilities", Merchant: "PowerCo", AccountBalance: decimal.RequireFromString("759.65")},
	}}
	if err := Write(path, ds); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, cell := range []string{"A2", "B2", "E3"} {
		typ, err := f.GetCellType("transactions", cell)
		if err != nil {
			t.Fatal(err)
		}
		if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
			t.Fatalf("cell %s written as text", cell)
		}
	}

	r, err := Open(path, ports.TableNames{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	txs, err := r.ReadTransactions(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for i, want := range ds.Transactions {
		if d := txs[i].Date.Sub(want.Date); d < -time.Second || d > time.Second {
			t.Fatalf("row %d date = %v, want %v", i, txs[i].Date, want.Date)
		}
		if !txs[i].Amount.Equal(want.Amount) || !txs[i].AccountBalance.Equal(want.AccountBalance) {
			t.Fatalf("row %d amounts = %s/%s, want %s/%s", i, txs[i].Amount, txs[i].AccountBalance, want.Amount, want.AccountBalance)
		}
	}
	if !txs[0].Date.Before(txs[1].Date) {
		t.Fatal("intra-day order lost")
	}
}

func TestReader_ReopensChangedWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finance.xlsx")
	ds := memory.Demo()
	one := ds
	one.Transactions = ds.Transactions[:1]
	if err := Write(path, one); err != nil {
		t.Fatalf("write: %v", err)
	}
	r, err := Open(path, ports.TableNames{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	ctx := context.Background()
	if txs, _ := r.ReadTransactions(ctx); len(txs) != 1 {
		t.Fatalf("got %d rows, want 1", len(txs))
	}

	two := ds
	two.Transactions = ds.Transactions[:2]
	if err := Write(path, two); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	txs, err := r.ReadTransactions(ctx)
	if err != nil {
		t.Fatalf("read after rewrite: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d rows after rewrite, want 2", len(txs))
	}
}
