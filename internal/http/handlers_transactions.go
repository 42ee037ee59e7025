package http

import (
	"net/http"

	"sysfinance/internal/core"
	applog "sysfinance/internal/log"
	"sysfinance/internal/services"
)

type transactionRequest struct {
	Amount       core.Money `json:"amount"`
	Type         string     `json:"type" validate:"required,oneof=income expense"`
	CategoryID   *int64     `json:"category_id" validate:"omitempty,gt=0"`
	BankID       *int64     `json:"bank_id" validate:"omitempty,gt=0"`
	VaultID      *int64     `json:"vault_id" validate:"omitempty,gt=0"`
	CreditCardID *int64     `json:"credit_card_id" validate:"omitempty,gt=0"`
	Installments int        `json:"installments" validate:"min=0,max=120"`
	Date         core.Date  `json:"date"`
	Description  string     `json:"description" validate:"max=200"`
}

// handleCreateTransaction records a transaction. Split card purchases
// answer with their first installment.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	t, err := s.svc.Transactions.Create(r.Context(), userID(r), services.CreateTransactionInput{
		Amount:       req.Amount,
		Type:         core.TransactionType(req.Type),
		CategoryID:   req.CategoryID,
		BankID:       req.BankID,
		VaultID:      req.VaultID,
		CreditCardID: req.CreditCardID,
		Installments: req.Installments,
		Date:         req.Date,
		Description:  req.Description,
	})
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(t).Write(w)
}

// handleListTransactions lists every transaction, or one month's when both
// month and year are given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var month, year int
	if q.Has("month") && q.Has("year") {
		p, err := ParseMonthParams(q, s.now())
		if err != nil {
			writeError(w, r, applog.OpList, err)
			return
		}
		month, year = p.Month, p.Year
	}

	txs, err := s.svc.Transactions.List(r.Context(), userID(r), month, year)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(txs)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.commandByID(w, r, s.svc.Transactions.Delete)
}
