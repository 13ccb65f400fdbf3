package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"cashlog/internal/core"
	"cashlog/internal/export"
)

// parseReportQuery reads type/startDate/endDate, collecting violations.
// Range validation (end before start, unknown kind) is left to the
// report service.
func parseReportQuery(r *http.Request) (core.ReportKind, core.Date, core.Date, error) {
	q := r.URL.Query()
	ve := core.NewValidationError()

	kind := core.ReportKind(q.Get("type"))
	if q.Get("type") == "" {
		ve.Add("type", "is required")
	}

	var start, end core.Date
	if v := q.Get("startDate"); v == "" {
		ve.Add("startDate", "is required")
	} else if d, err := core.ParseDate(v); err != nil {
		ve.Add("startDate", "must be YYYY-MM-DD")
	} else {
		start = d
	}
	if v := q.Get("endDate"); v == "" {
		ve.Add("endDate", "is required")
	} else if d, err := core.ParseDate(v); err != nil {
		ve.Add("endDate", "must be YYYY-MM-DD")
	} else {
		end = d
	}

	return kind, start, end, ve.OrNil()
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	kind, start, end, err := parseReportQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := identity(r)
	rows, err := s.reports.Aggregate(r.Context(), kind, id.OrganizationID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]reportRowDTO, 0, len(rows))
	for _, row := range rows {
		data = append(data, toReportRowDTO(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	kind, start, end, err := parseReportQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format != "pdf" && format != "excel" {
		ve := core.NewValidationError()
		ve.Add("format", "must be pdf or excel")
		writeError(w, r, ve.OrNil())
		return
	}

	id := identity(r)
	rows, err := s.reports.Aggregate(r.Context(), kind, id.OrganizationID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Render to a buffer first so failures still produce a clean error
	// response instead of a truncated download.
	var buf bytes.Buffer
	var contentType, ext string
	switch format {
	case "pdf":
		contentType, ext = "application/pdf", "pdf"
		err = export.WriteReportPDF(&buf, kind, rows, start, end)
	case "excel":
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
		err = export.WriteReportXLSX(&buf, kind, rows, start, end)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("report_%s_%s.%s", kind, time.Now().Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(buf.Bytes())
}
