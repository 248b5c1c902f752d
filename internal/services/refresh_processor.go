package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finintel/internal/sheets"
)

// RefreshProcessorConfig holds configuration for the refresh processor
type RefreshProcessorConfig struct {
	// PollInterval is how often the source workbook is re-read (default: 5m)
	PollInterval time.Duration
}

func DefaultRefreshProcessorConfig() RefreshProcessorConfig {
	return RefreshProcessorConfig{PollInterval: 5 * time.Minute}
}

// Invalidator drops memoized reports after the stored dataset changed.
type Invalidator interface {
	Invalidate() int
}

// RefreshProcessor periodically copies the dataset from a source backend
// (a workbook or spreadsheet) into a local store. It only writes when the
// source fingerprint changes.
type RefreshProcessor struct {
	source      sheets.DatasetReader
	target      sheets.DatasetWriter
	invalidator Invalidator
	config      RefreshProcessorConfig

	mu      sync.Mutex
	running bool
	last    string
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefreshProcessor(source sheets.DatasetReader, target sheets.DatasetWriter, invalidator Invalidator, config RefreshProcessorConfig) *RefreshProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRefreshProcessorConfig().PollInterval
	}
	return &RefreshProcessor{source: source, target: target, invalidator: invalidator, config: config}
}

// Start begins the polling loop. Returns an error if already running.
func (p *RefreshProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("refresh processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Refresh processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for it to finish or ctx to expire.
func (p *RefreshProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Refresh processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *RefreshProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RefreshProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	if _, err := p.RefreshOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Dataset refresh failed", "error", err)
	}
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.RefreshOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Dataset refresh failed", "error", err)
			}
		}
	}
}

// RefreshOnce reads the source and imports it when its content changed.
// It reports whether an import happened.
func (p *RefreshProcessor) RefreshOnce(ctx context.Context) (bool, error) {
	ds, err := LoadDataset(ctx, p.source)
	if err != nil {
		return false, fmt.Errorf("load source dataset: %w", err)
	}
	fp := Fingerprint(ds)

	p.mu.Lock()
	unchanged := fp == p.last
	p.mu.Unlock()
	if unchanged {
		slog.DebugContext(ctx, "Source dataset unchanged", "fingerprint", fp)
		return false, nil
	}

	if err := p.target.ImportDataset(ctx, ds); err != nil {
		return false, fmt.Errorf("import dataset: %w", err)
	}
	p.mu.Lock()
	p.last = fp
	p.mu.Unlock()

	dropped := 0
	if p.invalidator != nil {
		dropped = p.invalidator.Invalidate()
	}
	slog.InfoContext(ctx, "Dataset refreshed",
		"fingerprint", fp,
		"transactions", len(ds.Transactions),
		"reports_invalidated", dropped)
	return true, nil
}
