package http

import (
	"net/http"

	"finintel/internal/core"
	"finintel/internal/log"
	"finintel/internal/middleware/trace"
)

func requestIDOf(r *http.Request) string {
	if r == nil {
		return ""
	}
	return trace.RequestID(r)
}

// report fetches the current report or writes the error response.
func (s *Server) report(w http.ResponseWriter, r *http.Request) (core.Report, bool) {
	rep, err := s.reports.Report(r.Context())
	if err != nil {
		writeReportError(w, r, err)
		return core.Report{}, false
	}
	return rep, true
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Fingerprint:       rep.Fingerprint,
		Summary:           rep.Summary,
		MonthsBelowTarget: len(rep.MonthsBelowTarget()),
	})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseMonthRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newMonthlyRows(rep.Monthly, rng))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rep.ExpensesByCategory))
}

func (s *Server) handleMerchants(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rep.NetByMerchant))
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	flag, filter := ParseRiskFlag(r)
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	rows := make([]core.RiskAmount, 0, len(rep.Risk))
	for _, row := range rep.Risk {
		if !filter || row.RiskFlag == flag {
			rows = append(rows, row)
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseMonthRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	below, err := ParseBool(r, "below")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newBudgetRows(rep.Budget, rng, below))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseMonthRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	points := make([]core.BalancePoint, 0, len(rep.Balance))
	for _, p := range rep.Balance {
		if rng.Contains(core.MonthOf(p.Date)) {
			points = append(points, p)
		}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	purged := s.reports.Invalidate()
	log.FromContext(r.Context()).InfoContext(r.Context(), "Report cache invalidated", "purged", purged)
	writeJSON(w, http.StatusOK, map[string]int{"purged": purged})
}

// nonNil keeps empty tables encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
