package http

import (
	"net/http"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

// createTransactionRequest carries amounts as free-form strings so
// Persian digits, thousands separators and currency symbols are all
// accepted at the edge.
type createTransactionRequest struct {
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	Title           string `json:"title"`
	Tags            string `json:"tags"`
	AccountID       int64  `json:"accountId"`
	TargetAccountID int64  `json:"targetAccountId"`
	Year            int    `json:"year"`
	Month           int    `json:"month"`
	Day             int    `json:"day"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t := core.Transaction{
		Kind:            core.TransactionKind(sanitizeInput(req.Type)),
		Amount:          core.ParseAmount(req.Amount),
		Title:           sanitizeInput(req.Title),
		Tags:            core.NormalizeTags(sanitizeInput(req.Tags)),
		AccountID:       req.AccountID,
		TargetAccountID: req.TargetAccountID,
		Date:            jalali.Date{Year: req.Year, Month: req.Month, Day: req.Day},
	}

	created, err := s.app.AddTransaction(r.Context(), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateReports()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	txs, err := s.app.SearchTransactions(r.Context(), sanitizeInput(query))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}
