package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"finintel/internal/core"
	ports "finintel/internal/sheets"
)

// Store keeps a dataset in memory. It is the default backend for local runs
// and tests. A store created by NewFromDir re-reads its CSV files whenever
// one of them changes on disk.
type Store struct {
	mu sync.RWMutex
	ds core.Dataset

	dir   string
	names ports.TableNames
	stamp string
}

var (
	_ ports.DatasetReader = (*Store)(nil)
	_ ports.DatasetWriter = (*Store)(nil)
)

func New(ds core.Dataset) *Store {
	return &Store{ds: clone(ds)}
}

// NewFromDir seeds the store from "<table>.csv" files in dir. When no
// transactions file exists the built-in demo dataset is used instead.
func NewFromDir(dir string, names ports.TableNames) (*Store, error) {
	s := &Store{dir: dir, names: names.WithDefaults()}
	if err := s.reloadIfChanged(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) paths() []string {
	return []string{
		filepath.Join(s.dir, s.names.Transactions+".csv"),
		filepath.Join(s.dir, s.names.Categories+".csv"),
		filepath.Join(s.dir, s.names.Targets+".csv"),
		filepath.Join(s.dir, s.names.Rules+".csv"),
	}
}

// dirStamp summarizes the size and modification time of every seed file.
func (s *Store) dirStamp() string {
	var b strings.Builder
	for _, p := range s.paths() {
		info, err := os.Stat(p)
		if err != nil {
			b.WriteString("-;")
			continue
		}
		fmt.Fprintf(&b, "%d:%d;", info.Size(), info.ModTime().UnixNano())
	}
	return b.String()
}

// reloadIfChanged re-reads the seed files when their stamp moved. A failed
// reload keeps the previous dataset and returns the error.
func (s *Store) reloadIfChanged() error {
	stamp := s.dirStamp()
	if stamp == s.stamp {
		return nil
	}
	ds, err := loadDir(s.dir, s.names)
	if err != nil {
		return err
	}
	if s.stamp != "" {
		slog.Debug("Seed files changed on disk, reloaded", "dir", s.dir, "transactions", len(ds.Transactions))
	}
	s.ds, s.stamp = ds, stamp
	return nil
}

// snapshot returns the current dataset, reloading a directory-backed store
// first. The returned slices are shared and must be copied before handing
// them out.
func (s *Store) snapshot() (core.Dataset, error) {
	if s.dir == "" {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.ds, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadIfChanged(); err != nil {
		return core.Dataset{}, err
	}
	return s.ds, nil
}

func loadDir(dir string, names ports.TableNames) (core.Dataset, error) {
	txRows, err := readCSV(filepath.Join(dir, names.Transactions+".csv"))
	if errors.Is(err, fs.ErrNotExist) {
		return Demo(), nil
	}
	if err != nil {
		return core.Dataset{}, err
	}

	var ds core.Dataset
	if ds.Transactions, err = ports.ParseTransactions(txRows); err != nil {
		return core.Dataset{}, err
	}
	rows, err := readOptionalCSV(filepath.Join(dir, names.Categories+".csv"))
	if err != nil {
		return core.Dataset{}, err
	}
	if ds.Categories, err = ports.ParseCategories(rows); rows != nil && err != nil {
		return core.Dataset{}, err
	}
	rows, err = readOptionalCSV(filepath.Join(dir, names.Targets+".csv"))
	if err != nil {
		return core.Dataset{}, err
	}
	if ds.Targets, err = ports.ParseMonthlyTargets(rows); rows != nil && err != nil {
		return core.Dataset{}, err
	}
	rows, err = readOptionalCSV(filepath.Join(dir, names.Rules+".csv"))
	if err != nil {
		return core.Dataset{}, err
	}
	if ds.Rules, err = ports.ParseMerchantRules(rows); rows != nil && err != nil {
		return core.Dataset{}, err
	}
	return ds, nil
}

func (s *Store) ReadTransactions(_ context.Context) ([]core.Transaction, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return append([]core.Transaction(nil), ds.Transactions...), nil
}

func (s *Store) ReadCategories(_ context.Context) ([]core.Category, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return append([]core.Category(nil), ds.Categories...), nil
}

func (s *Store) ReadMonthlyTargets(_ context.Context) ([]core.BudgetTarget, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return append([]core.BudgetTarget(nil), ds.Targets...), nil
}

func (s *Store) ReadMerchantRules(_ context.Context) ([]core.MerchantRule, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return append([]core.MerchantRule(nil), ds.Rules...), nil
}

// ImportDataset replaces the stored dataset.
func (s *Store) ImportDataset(_ context.Context, ds core.Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("validate dataset: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = clone(ds)
	return nil
}

func clone(ds core.Dataset) core.Dataset {
	return core.Dataset{
		Transactions: append([]core.Transaction(nil), ds.Transactions...),
		Categories:   append([]core.Category(nil), ds.Categories...),
		Targets:      append([]core.BudgetTarget(nil), ds.Targets...),
		Rules:        append([]core.MerchantRule(nil), ds.Rules...),
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// readOptionalCSV returns nil rows when the file does not exist.
func readOptionalCSV(path string) ([][]string, error) {
	rows, err := readCSV(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return rows, err
}
