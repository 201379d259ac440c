package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"paydo/internal/core"
)

// handleMonthReport serves the monthly histogram and category
// breakdown. offset is a signed month distance from the current Jalali
// month (0 = this month, -1 = last month); kind defaults to expense.
func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = n
	}

	kind := core.Expense
	if v := strings.TrimSpace(r.URL.Query().Get("kind")); v != "" {
		kind = core.TransactionKind(v)
	}

	key := fmt.Sprintf("%d|%s", offset, kind)
	if report, found := s.reportCache.Get(key); found {
		slog.DebugContext(r.Context(), "report cache hit", "offset", offset, "kind", kind)
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.app.MonthReport(r.Context(), offset, kind)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.reportCache.Set(key, report)
	writeJSON(w, http.StatusOK, report)
}
