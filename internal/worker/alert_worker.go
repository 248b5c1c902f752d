package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"finintel/internal/amqp"
	"finintel/internal/cache"
	"finintel/internal/core"
)

// Alert kinds raised from report events.
const (
	AlertBudgetShortfall = "budget_shortfall"
	AlertNetLoss         = "net_loss"
	AlertNegativeBalance = "negative_balance"
)

// Alert is one finding about a computed report.
type Alert struct {
	Kind        string
	Fingerprint string
	Month       core.MonthBucket
	Amount      decimal.Decimal
	Message     string
}

// Notifier delivers alerts. The default notifier writes them to the log.
type Notifier func(ctx context.Context, a Alert)

// AlertWorker turns report-computed events into alerts. A report fingerprint
// is handled once even when the message is redelivered.
type AlertWorker struct {
	seen   cache.Cache[struct{}]
	notify Notifier
}

func NewAlertWorker(seen cache.Cache[struct{}], notify Notifier) *AlertWorker {
	if notify == nil {
		notify = LogNotifier
	}
	return &AlertWorker{seen: seen, notify: notify}
}

// LogNotifier writes alerts as warning records.
func LogNotifier(ctx context.Context, a Alert) {
	attrs := []any{"kind", a.Kind, "fingerprint", a.Fingerprint, "amount", a.Amount.String()}
	if a.Month != "" {
		attrs = append(attrs, "month", a.Month.String())
	}
	slog.WarnContext(ctx, a.Message, attrs...)
}

// HandleReportComputed implements the consumer callback for report events.
func (w *AlertWorker) HandleReportComputed(ctx context.Context, msg *amqp.ReportComputedMessage) error {
	if msg.Fingerprint == "" {
		return fmt.Errorf("message %s has no fingerprint", msg.ID)
	}
	if w.seen != nil {
		if _, dup := w.seen.Get(msg.Fingerprint); dup {
			slog.DebugContext(ctx, "Report already evaluated", "fingerprint", msg.Fingerprint, "id", msg.ID)
			return nil
		}
	}

	alerts := Evaluate(msg)
	for _, a := range alerts {
		w.notify(ctx, a)
	}
	slog.InfoContext(ctx, "Report evaluated",
		"id", msg.ID,
		"fingerprint", msg.Fingerprint,
		"alerts", len(alerts))

	if w.seen != nil {
		w.seen.Set(msg.Fingerprint, struct{}{})
	}
	return nil
}

// Evaluate derives the alerts for one report event, shortfalls first in month
// order.
func Evaluate(msg *amqp.ReportComputedMessage) []Alert {
	var out []Alert
	for _, s := range msg.BelowTarget {
		out = append(out, Alert{
			Kind:        AlertBudgetShortfall,
			Fingerprint: msg.Fingerprint,
			Month:       s.Month,
			Amount:      s.Delta,
			Message:     fmt.Sprintf("Revenue %s missed target %s", s.Revenue, s.Target),
		})
	}
	if msg.NetProfit.IsNegative() {
		out = append(out, Alert{
			Kind:        AlertNetLoss,
			Fingerprint: msg.Fingerprint,
			Amount:      msg.NetProfit,
			Message:     "Net loss over the reporting period",
		})
	}
	if msg.EndingBalance.Valid && msg.EndingBalance.Decimal.IsNegative() {
		out = append(out, Alert{
			Kind:        AlertNegativeBalance,
			Fingerprint: msg.Fingerprint,
			Amount:      msg.EndingBalance.Decimal,
			Message:     "Account balance is overdrawn",
		})
	}
	return out
}
