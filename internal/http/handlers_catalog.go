package http

import (
	"context"
	"net/http"

	"sysfinance/internal/core"
	applog "sysfinance/internal/log"
	"sysfinance/internal/services"
)

// Banks

type bankRequest struct {
	Name      string `json:"name" validate:"notblank,max=100"`
	IconColor string `json:"icon_color" validate:"max=32"`
}

func (s *Server) handleListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := s.svc.Catalog.ListBanks(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(banks)).Write(w)
}

func (s *Server) handleCreateBank(w http.ResponseWriter, r *http.Request) {
	var req bankRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	b, err := s.svc.Catalog.CreateBank(r.Context(), userID(r), req.Name, req.IconColor)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(b).Write(w)
}

func (s *Server) handleGetBank(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	b, err := s.svc.Catalog.GetBank(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleUpdateBank(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req bankRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	b, err := s.svc.Catalog.UpdateBank(r.Context(), userID(r), id, req.Name, req.IconColor)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleDeleteBank(w http.ResponseWriter, r *http.Request) {
	s.commandByID(w, r, s.svc.Catalog.DeleteBank)
}

// Vaults

type vaultRequest struct {
	BankID   int64      `json:"bank_id" validate:"required,gt=0"`
	Name     string     `json:"name" validate:"notblank,max=100"`
	Currency string     `json:"currency" validate:"omitempty,len=3,alpha"`
	Balance  core.Money `json:"balance"`
}

func (req vaultRequest) input() services.VaultInput {
	return services.VaultInput{BankID: req.BankID, Name: req.Name, Currency: req.Currency, Balance: req.Balance}
}

func (s *Server) handleListVaults(w http.ResponseWriter, r *http.Request) {
	vaults, err := s.svc.Catalog.ListVaults(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(vaults)).Write(w)
}

func (s *Server) handleCreateVault(w http.ResponseWriter, r *http.Request) {
	var req vaultRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	v, err := s.svc.Catalog.CreateVault(r.Context(), userID(r), req.input())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(v).Write(w)
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	v, err := s.svc.Catalog.GetVault(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(v).Write(w)
}

func (s *Server) handleUpdateVault(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req vaultRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	v, err := s.svc.Catalog.UpdateVault(r.Context(), userID(r), id, req.input())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(v).Write(w)
}

func (s *Server) handleDeleteVault(w http.ResponseWriter, r *http.Request) {
	s.commandByID(w, r, s.svc.Catalog.DeleteVault)
}

// Categories

type categoryRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
	Type string `json:"type" validate:"required,oneof=income expense"`
	Icon string `json:"icon" validate:"max=64"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Catalog.ListCategories(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(cats)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	c, err := s.svc.Catalog.CreateCategory(r.Context(), userID(r), req.Name, core.TransactionType(req.Type), req.Icon)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	c, err := s.svc.Catalog.UpdateCategory(r.Context(), userID(r), id, req.Name, core.TransactionType(req.Type), req.Icon)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.commandByID(w, r, s.svc.Catalog.DeleteCategory)
}

// Credit cards

type creditCardRequest struct {
	Name       string     `json:"name" validate:"notblank,max=100"`
	Limit      core.Money `json:"limit"`
	ClosingDay int        `json:"closing_day" validate:"min=1,max=31"`
	DueDay     int        `json:"due_day" validate:"min=1,max=31"`
	Color      string     `json:"color" validate:"max=32"`
}

func (req creditCardRequest) card() core.CreditCard {
	return core.CreditCard{Name: req.Name, Limit: req.Limit, ClosingDay: req.ClosingDay, DueDay: req.DueDay, Color: req.Color}
}

func (s *Server) handleListCreditCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.svc.Catalog.ListCreditCards(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(cards)).Write(w)
}

func (s *Server) handleCreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req creditCardRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	c, err := s.svc.Catalog.CreateCreditCard(r.Context(), userID(r), req.card())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleGetCreditCard(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	c, err := s.svc.Catalog.GetCreditCard(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleUpdateCreditCard(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req creditCardRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	c, err := s.svc.Catalog.UpdateCreditCard(r.Context(), userID(r), id, req.card())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleDeleteCreditCard(w http.ResponseWriter, r *http.Request) {
	s.commandByID(w, r, s.svc.Catalog.DeleteCreditCard)
}

// Recurring templates

type recurringRequest struct {
	Amount       core.Money `json:"amount"`
	Type         string     `json:"type" validate:"required,oneof=income expense"`
	CategoryID   *int64     `json:"category_id" validate:"omitempty,gt=0"`
	BankID       *int64     `json:"bank_id" validate:"omitempty,gt=0"`
	VaultID      *int64     `json:"vault_id" validate:"omitempty,gt=0"`
	CreditCardID *int64     `json:"credit_card_id" validate:"omitempty,gt=0"`
	DayOfMonth   int        `json:"day_of_month" validate:"min=1,max=31"`
	Description  string     `json:"description" validate:"max=200"`
}

type recurringUpdateRequest struct {
	Amount      *core.Money `json:"amount"`
	DayOfMonth  *int        `json:"day_of_month" validate:"omitempty,min=1,max=31"`
	Description *string     `json:"description" validate:"omitempty,max=200"`
	IsActive    *bool       `json:"is_active"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Catalog.ListRecurring(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(list)).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tmpl, err := s.svc.Catalog.CreateRecurring(r.Context(), userID(r), services.RecurringInput{
		Amount:       req.Amount,
		Type:         core.TransactionType(req.Type),
		CategoryID:   req.CategoryID,
		BankID:       req.BankID,
		VaultID:      req.VaultID,
		CreditCardID: req.CreditCardID,
		DayOfMonth:   req.DayOfMonth,
		Description:  req.Description,
	})
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(tmpl).Write(w)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	tmpl, err := s.svc.Catalog.GetRecurring(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(tmpl).Write(w)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req recurringUpdateRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tmpl, err := s.svc.Catalog.UpdateRecurring(r.Context(), userID(r), id, services.RecurringUpdate{
		Amount:      req.Amount,
		DayOfMonth:  req.DayOfMonth,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(tmpl).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	s.commandByID(w, r, s.svc.Catalog.DeleteRecurring)
}

// Budgets and notifications

type budgetRequest struct {
	CategoryID *int64     `json:"category_id" validate:"omitempty,gt=0"`
	Month      int        `json:"month" validate:"min=1,max=12"`
	Year       int        `json:"year" validate:"min=1970,max=2100"`
	Amount     core.Money `json:"amount"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	list, err := s.svc.Catalog.ListBudgets(r.Context(), userID(r), p.Month, p.Year)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(list)).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	b, err := s.svc.Catalog.CreateBudget(r.Context(), userID(r), core.Budget{
		CategoryID: req.CategoryID,
		Month:      req.Month,
		Year:       req.Year,
		Amount:     req.Amount,
	})
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(b).Write(w)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "true"
	list, err := s.svc.Catalog.ListNotifications(r.Context(), userID(r), unread)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(list)).Write(w)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	s.commandByID(w, r, s.svc.Catalog.MarkNotificationRead)
}

// commandByID runs a command on the {id} resource and answers 204.
func (s *Server) commandByID(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id int64) error) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := fn(r.Context(), userID(r), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
