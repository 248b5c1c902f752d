package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// Uncategorized groups expenses whose category cell is blank.
	Uncategorized = "uncategorized"
	// UnknownMerchant groups transactions whose merchant cell is blank.
	UnknownMerchant = "unknown"
)

type (
	// Transaction is one ledger row. Positive amounts are inflows (revenue),
	// negative amounts are outflows (expenses). AccountBalance is the running
	// balance as of this transaction.
	Transaction struct {
		Date           time.Time
		Amount         decimal.Decimal
		Category       string
		Merchant       string
		AccountBalance decimal.Decimal
	}

	Category struct {
		Name string
	}

	// MerchantRule attaches a risk flag to a merchant name.
	MerchantRule struct {
		Merchant string
		RiskFlag RiskFlag
	}

	// BudgetTarget is a revenue target for the calendar month containing Month.
	BudgetTarget struct {
		Month         time.Time
		RevenueTarget decimal.Decimal
	}

	// Dataset is the immutable input handle produced once by ingestion and
	// passed into the pipeline.
	Dataset struct {
		Transactions []Transaction
		Categories   []Category
		Targets      []BudgetTarget
		Rules        []MerchantRule
	}
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrEmptyMerchant = errors.New("empty merchant")
)

// MissingColumnError reports required columns absent from an input table.
type MissingColumnError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %q: missing column %s", e.Table, strings.Join(e.Columns, ","))
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// CategoryLabel returns the grouping key used for expense breakdowns.
func (t Transaction) CategoryLabel() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return Uncategorized
}

// MerchantLabel returns the grouping and join key for merchant aggregates.
func (t Transaction) MerchantLabel() string {
	if m := strings.TrimSpace(t.Merchant); m != "" {
		return m
	}
	return UnknownMerchant
}

func (r MerchantRule) Validate() error {
	if strings.TrimSpace(r.Merchant) == "" {
		return ErrEmptyMerchant
	}
	return nil
}

func (b BudgetTarget) Validate() error {
	if b.Month.IsZero() {
		return ErrInvalidMonth
	}
	return nil
}

// Validate checks every row of the dataset and reports the first problem
// with its table and position.
func (d Dataset) Validate() error {
	for i, t := range d.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transactions row %d: %w", i+1, err)
		}
	}
	for i, b := range d.Targets {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("monthly_targets row %d: %w", i+1, err)
		}
	}
	for i, r := range d.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("merchant_rules row %d: %w", i+1, err)
		}
	}
	return nil
}

// UnknownCategories lists transaction categories that are not present in the
// Categories reference table, in first-seen order. Blank categories are ignored.
func (d Dataset) UnknownCategories() []string {
	known := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		known[strings.ToLower(strings.TrimSpace(c.Name))] = struct{}{}
	}
	seen := map[string]struct{}{}
	var out []string
	for _, t := range d.Transactions {
		name := strings.TrimSpace(t.Category)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := known[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
