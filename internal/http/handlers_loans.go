package http

import (
	"net/http"

	"paydo/internal/core"
	"paydo/internal/jalali"
	"paydo/internal/services"
)

type createLoanRequest struct {
	BankName    string `json:"bankName"`
	TotalAmount string `json:"totalAmount"`
	Count       int    `json:"count"`
	// Amount is optional; empty asks for the suggested default.
	Amount string `json:"amount"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
}

type updateLoanRequest struct {
	BankName    string `json:"bankName"`
	TotalAmount string `json:"totalAmount"`
}

type editInstallmentRequest struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Amount string `json:"amount"`
	IsPaid bool   `json:"isPaid"`
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.app.Loans(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if loans == nil {
		loans = []services.LoanView{}
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	view, err := s.app.Loan(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := jalali.Date{Year: req.Year, Month: req.Month, Day: req.Day}
	created, err := s.app.CreateLoan(r.Context(),
		sanitizeInput(req.BankName),
		core.ParseAmount(req.TotalAmount),
		req.Count,
		start,
		core.ParseAmount(req.Amount))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	var req updateLoanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.app.UpdateLoanInfo(r.Context(), id,
		sanitizeInput(req.BankName), core.ParseAmount(req.TotalAmount)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	view, err := s.app.Loan(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	if err := s.app.DeleteLoan(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	added, err := s.app.AppendInstallment(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// handleEditInstallment replaces one installment. A body carrying only
// isPaid (no date, no amount) toggles the paid flag without touching
// the rest.
func (s *Server) handleEditInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid installment index")
		return
	}
	var req editInstallmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Amount == "" && req.Year == 0 {
		err = s.app.SetInstallmentPaid(r.Context(), id, index, req.IsPaid)
	} else {
		due := jalali.Date{Year: req.Year, Month: req.Month, Day: req.Day}
		err = s.app.EditInstallment(r.Context(), id, index, due, core.ParseAmount(req.Amount), req.IsPaid)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	view, err := s.app.Loan(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRemoveInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid installment index")
		return
	}
	if err := s.app.RemoveInstallment(r.Context(), id, index); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
