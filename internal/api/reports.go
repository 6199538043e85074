package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"tablebook/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleFloorReport downloads the floor sheet of a date.
// GET /api/reports/floor?date=YYYY-MM-DD
func (s *HTTPServer) handleFloorReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Floor == nil {
		writeError(w, http.StatusNotImplemented, "reports not configured")
		return
	}
	date, err := requiredDate(r, "date")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteFloor(r.Context(), s.deps.Floor, date, &buf); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FloorFilename(date)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
