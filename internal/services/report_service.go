package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"finintel/internal/amqp"
	"finintel/internal/cache"
	"finintel/internal/core"
	"finintel/internal/log"
	"finintel/internal/pipeline"
	"finintel/internal/sheets"
)

// Publisher announces computed reports to downstream consumers.
type Publisher interface {
	PublishReportComputed(ctx context.Context, msg *amqp.ReportComputedMessage) error
}

// ReportService loads the dataset from the configured backend, derives the
// report and memoizes it by dataset fingerprint. Concurrent misses for one
// fingerprint share a single computation, and a fingerprint is announced once
// until Invalidate is called.
type ReportService struct {
	reader    sheets.DatasetReader
	reports   cache.Cache[core.Report]
	publisher Publisher

	group singleflight.Group

	mu        sync.Mutex
	published map[string]struct{}
}

// NewReportService wires the service. reports and publisher may be nil to
// disable caching or event publishing.
func NewReportService(reader sheets.DatasetReader, reports cache.Cache[core.Report], publisher Publisher) *ReportService {
	return &ReportService{
		reader:    reader,
		reports:   reports,
		publisher: publisher,
		published: make(map[string]struct{}),
	}
}

// LoadDataset reads the four input tables concurrently and validates them.
func (s *ReportService) LoadDataset(ctx context.Context) (core.Dataset, error) {
	return LoadDataset(ctx, s.reader)
}

// LoadDataset reads every table of r in parallel. The first failing read
// cancels the others.
func LoadDataset(ctx context.Context, r sheets.DatasetReader) (core.Dataset, error) {
	var ds core.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if ds.Transactions, err = r.ReadTransactions(gctx); err != nil {
			return fmt.Errorf("read transactions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if ds.Categories, err = r.ReadCategories(gctx); err != nil {
			return fmt.Errorf("read categories: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if ds.Targets, err = r.ReadMonthlyTargets(gctx); err != nil {
			return fmt.Errorf("read monthly targets: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if ds.Rules, err = r.ReadMerchantRules(gctx); err != nil {
			return fmt.Errorf("read merchant rules: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Dataset{}, err
	}
	if err := ds.Validate(); err != nil {
		return core.Dataset{}, fmt.Errorf("validate dataset: %w", err)
	}
	return ds, nil
}

// Report returns the report for the current dataset, computing it only when
// the dataset fingerprint has not been seen before.
func (s *ReportService) Report(ctx context.Context) (core.Report, error) {
	ds, err := s.LoadDataset(ctx)
	if err != nil {
		return core.Report{}, err
	}
	fp := Fingerprint(ds)

	if s.reports != nil {
		if r, ok := s.reports.Get(fp); ok {
			slog.DebugContext(ctx, "Report served from cache", log.FieldFingerprint, fp)
			return r, nil
		}
	}

	v, err, shared := s.group.Do(fp, func() (any, error) {
		return s.compute(ctx, ds, fp), nil
	})
	if err != nil {
		return core.Report{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Report computation shared with a concurrent request", log.FieldFingerprint, fp)
	}
	return v.(core.Report), nil
}

func (s *ReportService) compute(ctx context.Context, ds core.Dataset, fp string) core.Report {
	start := time.Now()
	report := pipeline.Run(ds)
	report.Fingerprint = fp
	log.NewStructuredLogger(log.FromContext(ctx)).LogReportComputed(ctx, report, time.Since(start))
	if len(report.UnknownCategories) > 0 {
		slog.WarnContext(ctx, "Transactions reference unknown categories",
			"fingerprint", fp, "categories", report.UnknownCategories)
	}

	if s.reports != nil {
		s.reports.Set(fp, report)
	}
	if s.markPublished(fp) {
		s.publish(ctx, report)
	}
	return report
}

// maxPublished bounds the set of announced fingerprints. Once full the set is
// reset, so at worst an old dataset is announced a second time.
const maxPublished = 1024

// markPublished reports whether fp has not been announced yet and records it.
func (s *ReportService) markPublished(fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.published[fp]; ok {
		return false
	}
	if len(s.published) >= maxPublished {
		clear(s.published)
	}
	s.published[fp] = struct{}{}
	return true
}

func (s *ReportService) publish(ctx context.Context, report core.Report) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Publisher not configured, skipping report event")
		return
	}
	if err := s.publisher.PublishReportComputed(ctx, amqp.NewReportComputedMessage(report)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report event",
			"fingerprint", report.Fingerprint, "error", err)
	}
}

// Invalidate drops every memoized report and returns how many were held. The
// next computation of any dataset is announced again.
func (s *ReportService) Invalidate() int {
	s.mu.Lock()
	clear(s.published)
	s.mu.Unlock()
	if s.reports == nil {
		return 0
	}
	return s.reports.Purge()
}
