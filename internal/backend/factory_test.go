package backend

import (
	"context"
	"path/filepath"
	"testing"

	"finintel/internal/config"
	"finintel/internal/sheets"
	"finintel/internal/sheets/memory"
	"finintel/internal/sheets/xlsx"
)

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	workbook := filepath.Join(dir, "finance.xlsx")
	if err := xlsx.Write(workbook, memory.Demo()); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	tests := []struct {
		name       string
		config     Config
		wantWriter bool
	}{
		{"memory falls back to demo", Config{Type: MemoryBackend, DataDirectory: dir}, true},
		{"xlsx workbook", Config{Type: XLSXBackend, WorkbookPath: workbook}, false},
		{"sqlite database", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "finintel.db")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewFactory(nil).CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer res.Close()

			if (res.Writer != nil) != tt.wantWriter {
				t.Fatalf("Writer present = %v, want %v", res.Writer != nil, tt.wantWriter)
			}
			if _, err := res.Reader.ReadTransactions(ctx); err != nil {
				t.Fatalf("ReadTransactions() error = %v", err)
			}
		})
	}
}

func TestCreateBackend_XLSXReadsDemo(t *testing.T) {
	ctx := context.Background()
	workbook := filepath.Join(t.TempDir(), "finance.xlsx")
	demo := memory.Demo()
	if err := xlsx.Write(workbook, demo); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: XLSXBackend, WorkbookPath: workbook})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	txs, err := res.Reader.ReadTransactions(ctx)
	if err != nil {
		t.Fatalf("ReadTransactions() error = %v", err)
	}
	if len(txs) != len(demo.Transactions) {
		t.Fatalf("got %d transactions, want %d", len(txs), len(demo.Transactions))
	}
}

func TestCreateBackend_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"unknown type", Config{Type: "postgres"}},
		{"sheets without spreadsheet", Config{Type: SheetsBackend}},
		{"xlsx without path", Config{Type: XLSXBackend}},
		{"xlsx missing file", Config{Type: XLSXBackend, WorkbookPath: "/nonexistent/finance.xlsx"}},
		{"sqlite without path", Config{Type: SQLiteBackend}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFactory(nil).CreateBackend(context.Background(), tt.config); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{
		DataBackend:       "xlsx",
		WorkbookPath:      "book.xlsx",
		DataDir:           "data",
		TransactionsSheet: "Ledger",
	}
	got, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != XLSXBackend || got.WorkbookPath != "book.xlsx" || got.DataDirectory != "data" {
		t.Fatalf("unexpected config: %+v", got)
	}
	want := sheets.DefaultTableNames()
	want.Transactions = "Ledger"
	if got.Tables != want {
		t.Fatalf("Tables = %+v, want %+v", got.Tables, want)
	}

	app.DataBackend = "bogus"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for invalid backend")
	}
}

func TestResultCloseWithoutCleanup(t *testing.T) {
	var nilResult *BackendResult
	if err := nilResult.Close(); err != nil {
		t.Fatalf("Close() on nil = %v", err)
	}
	if err := (&BackendResult{}).Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 4 || got[0] != "memory" || got[3] != "sqlite" {
		t.Fatalf("GetBackendTypeStrings() = %v", got)
	}
}
