package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finintel/internal/core"
	ports "finintel/internal/sheets"
	"finintel/internal/sheets/memory"
	"finintel/internal/sheets/xlsx"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() int { c.calls++; return 1 }

func TestDefaultRefreshProcessorConfig(t *testing.T) {
	if got := DefaultRefreshProcessorConfig().PollInterval; got != 5*time.Minute {
		t.Errorf("expected PollInterval 5m, got %v", got)
	}
	p := NewRefreshProcessor(nil, nil, nil, RefreshProcessorConfig{})
	if p.config.PollInterval != 5*time.Minute {
		t.Errorf("zero interval should fall back to default, got %v", p.config.PollInterval)
	}
}

func TestRefreshOnce_ImportsOnlyOnChange(t *testing.T) {
	source := memory.New(memory.Demo())
	target := memory.New(core.Dataset{})
	inv := &countingInvalidator{}
	p := NewRefreshProcessor(source, target, inv, DefaultRefreshProcessorConfig())
	ctx := context.Background()

	imported, err := p.RefreshOnce(ctx)
	if err != nil || !imported {
		t.Fatalf("first refresh: imported=%v err=%v", imported, err)
	}
	txs, _ := target.ReadTransactions(ctx)
	if len(txs) == 0 {
		t.Fatal("target should hold the source dataset")
	}

	imported, err = p.RefreshOnce(ctx)
	if err != nil || imported {
		t.Fatalf("unchanged source must not re-import: imported=%v err=%v", imported, err)
	}

	ds := memory.Demo()
	ds.Rules = nil
	if err := source.ImportDataset(ctx, ds); err != nil {
		t.Fatal(err)
	}
	imported, err = p.RefreshOnce(ctx)
	if err != nil || !imported {
		t.Fatalf("changed source: imported=%v err=%v", imported, err)
	}
	if inv.calls != 2 {
		t.Fatalf("expected 2 invalidations, got %d", inv.calls)
	}
}

func TestRefreshOnce_PicksUpRewrittenWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finance.xlsx")
	ds := memory.Demo()
	first := ds
	first.Transactions = ds.Transactions[:1]
	if err := xlsx.Write(path, first); err != nil {
		t.Fatalf("write: %v", err)
	}
	source, err := xlsx.Open(path, ports.TableNames{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer source.Close()

	target := memory.New(core.Dataset{})
	inv := &countingInvalidator{}
	p := NewRefreshProcessor(source, target, inv, DefaultRefreshProcessorConfig())
	ctx := context.Background()

	if imported, err := p.RefreshOnce(ctx); err != nil || !imported {
		t.Fatalf("first refresh: imported=%v err=%v", imported, err)
	}
	if err := xlsx.Write(path, ds); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	imported, err := p.RefreshOnce(ctx)
	if err != nil || !imported {
		t.Fatalf("rewritten workbook must be imported: imported=%v err=%v", imported, err)
	}
	txs, _ := target.ReadTransactions(ctx)
	if len(txs) != len(ds.Transactions) {
		t.Fatalf("target holds %d rows, want %d", len(txs), len(ds.Transactions))
	}
	if inv.calls != 2 {
		t.Fatalf("expected 2 invalidations, got %d", inv.calls)
	}
}

type failingWriter struct{}

func (failingWriter) ImportDataset(context.Context, core.Dataset) error { return errors.New("disk full") }

func TestRefreshOnce_ImportFailureRetriesNextTime(t *testing.T) {
	p := NewRefreshProcessor(memory.New(memory.Demo()), failingWriter{}, nil, DefaultRefreshProcessorConfig())
	if _, err := p.RefreshOnce(context.Background()); err == nil {
		t.Fatal("expected import error")
	}
	if p.last != "" {
		t.Fatal("fingerprint must not be remembered after a failed import")
	}
}

func TestRefreshProcessor_Lifecycle(t *testing.T) {
	target := memory.New(core.Dataset{})
	p := NewRefreshProcessor(memory.New(memory.Demo()), target, nil, RefreshProcessorConfig{PollInterval: 10 * time.Millisecond})
	ctx := context.Background()

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop should not error when not running: %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		txs, _ := target.ReadTransactions(ctx)
		if len(txs) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("refresh loop never imported the dataset")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("processor should not be running after Stop")
	}
}
