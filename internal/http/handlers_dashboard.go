package http

import (
	"net/http"

	applog "sysfinance/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	summary, err := s.svc.Aggregator.MonthlySummary(r.Context(), userID(r), p.Month, p.Year)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	summary.ByCategory = nonNil(summary.ByCategory)
	NewJSONResponse().Body(summary).Write(w)
}

// handleEvolution returns the rolling series ending with the current
// month; ?months overrides the configured window.
func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	months, err := ParseIntQuery(r.URL.Query(), "months", s.evolutionMonths)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	points, err := s.svc.Aggregator.Evolution(r.Context(), userID(r), months, s.now())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(points).Write(w)
}

func (s *Server) handleExportRows(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	rows, err := s.svc.Aggregator.ExportRows(r.Context(), userID(r), p.Month, p.Year)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"month": p.Month,
		"year":  p.Year,
		"rows":  nonNil(rows),
	}).Write(w)
}

// handleExportSheet pushes the month's rows to the configured spreadsheet.
func (s *Server) handleExportSheet(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	res, err := s.svc.Aggregator.ExportToSheet(r.Context(), userID(r), p.Month, p.Year)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}
