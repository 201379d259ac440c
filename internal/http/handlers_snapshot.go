package http

import (
	"io"
	"net/http"

	"paydo/internal/log"
	"paydo/internal/snapshot"
)

// handleExportSnapshot serves the whole state as a downloadable JSON
// backup in the persisted snapshot layout.
func (s *Server) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.ExportState(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	data, err := snapshot.Encode(state)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+snapshot.CurrentFile+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleRestoreSnapshot replaces the whole state with an uploaded
// backup. The body is the raw snapshot JSON; a structurally invalid
// blob is rejected before anything is touched.
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	state, err := snapshot.Decode(data)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.app.RestoreState(r.Context(), state); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

// handleReset wipes everything back to a single default account.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Reset(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

// handleRecentLogs serves the in-memory ring of recent log records.
func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	if s.ring == nil {
		writeJSON(w, http.StatusOK, []log.Entry{})
		return
	}
	writeJSON(w, http.StatusOK, s.ring.Recent())
}
