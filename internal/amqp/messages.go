package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finintel/internal/core"
)

// ReportComputedMessage announces a freshly computed report. It carries the
// headline figures and the months that missed their revenue target so
// consumers do not need to recompute anything.
type ReportComputedMessage struct {
	ID               string              `json:"id"`
	Fingerprint      string              `json:"fingerprint"`
	ComputedAt       time.Time           `json:"computed_at"`
	TotalRevenue     decimal.Decimal     `json:"total_revenue"`
	TotalExpenses    decimal.Decimal     `json:"total_expenses"`
	NetProfit        decimal.Decimal     `json:"net_profit"`
	ProfitMargin     decimal.NullDecimal `json:"profit_margin"`
	EndingBalance    decimal.NullDecimal `json:"ending_balance"`
	Months           int                 `json:"months"`
	TransactionCount int                 `json:"transaction_count"`
	BelowTarget      []Shortfall         `json:"below_target,omitempty"`
}

// Shortfall is one month whose revenue missed its target.
type Shortfall struct {
	Month   core.MonthBucket `json:"month"`
	Revenue decimal.Decimal  `json:"revenue"`
	Target  decimal.Decimal  `json:"target"`
	Delta   decimal.Decimal  `json:"delta"`
}

// NewReportComputedMessage summarises a report into a message with a fresh ID.
func NewReportComputedMessage(r core.Report) *ReportComputedMessage {
	msg := &ReportComputedMessage{
		ID:               uuid.NewString(),
		Fingerprint:      r.Fingerprint,
		ComputedAt:       time.Now().UTC(),
		TotalRevenue:     r.Summary.TotalRevenue,
		TotalExpenses:    r.Summary.TotalExpenses,
		NetProfit:        r.Summary.NetProfit,
		ProfitMargin:     r.Summary.ProfitMargin,
		EndingBalance:    r.Summary.EndingBalance,
		Months:           r.Summary.Months,
		TransactionCount: r.Summary.TransactionCount,
	}
	for _, b := range r.MonthsBelowTarget() {
		msg.BelowTarget = append(msg.BelowTarget, Shortfall{
			Month:   b.Month,
			Revenue: b.Revenue,
			Target:  b.RevenueTarget,
			Delta:   b.Delta(),
		})
	}
	return msg
}

func (m *ReportComputedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportComputedMessageFromJSON(data []byte) (*ReportComputedMessage, error) {
	var msg ReportComputedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
