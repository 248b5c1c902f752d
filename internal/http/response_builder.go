package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"finintel/internal/core"
	"finintel/internal/log"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: requestIDOf(r)})
}

// statusFor maps dataset problems to 422 and everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrMissingColumn),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrEmptyMerchant):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeReportError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build report",
		log.FieldError, err, log.FieldStatusCode, status)
	if status == http.StatusInternalServerError {
		writeError(w, r, status, "failed to build report")
		return
	}
	writeError(w, r, status, err.Error())
}

type summaryResponse struct {
	Fingerprint string `json:"fingerprint"`
	core.Summary
	MonthsBelowTarget int `json:"months_below_target"`
}

type monthlyRow struct {
	core.MonthlyFinance
	ExpenseMagnitude decimal.Decimal `json:"expense_magnitude"`
}

type budgetRow struct {
	core.BudgetVariance
	Delta      decimal.Decimal     `json:"delta"`
	Attainment decimal.NullDecimal `json:"attainment"`
}

func newMonthlyRows(in []core.MonthlyFinance, rng MonthRange) []monthlyRow {
	out := make([]monthlyRow, 0, len(in))
	for _, m := range in {
		if rng.Contains(m.Month) {
			out = append(out, monthlyRow{MonthlyFinance: m, ExpenseMagnitude: m.ExpenseMagnitude()})
		}
	}
	return out
}

func newBudgetRows(in []core.BudgetVariance, rng MonthRange, belowOnly bool) []budgetRow {
	out := make([]budgetRow, 0, len(in))
	for _, b := range in {
		if !rng.Contains(b.Month) {
			continue
		}
		if belowOnly && !b.Delta().IsNegative() {
			continue
		}
		out = append(out, budgetRow{BudgetVariance: b, Delta: b.Delta(), Attainment: b.Attainment()})
	}
	return out
}
