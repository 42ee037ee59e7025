package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sysfinance/internal/cache"
	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
	applog "sysfinance/internal/log"
)

var (
	ErrBankHasVaults      = fmt.Errorf("%w: bank still has vaults", core.ErrConflict)
	ErrCardHasPurchases   = fmt.Errorf("%w: credit card has linked transactions", core.ErrConflict)
	ErrSystemCategory     = fmt.Errorf("%w: system categories cannot be changed", core.ErrConflict)
	ErrTemplateNeedsVault = fmt.Errorf("%w: recurring templates with a bank must name a vault", core.ErrInvalidInput)
)

// CatalogService manages the reference entities a transaction points at:
// banks, vaults, categories, credit cards, recurring templates, budgets and
// notifications.
type CatalogService struct {
	store     ledger.Store
	mode      RecurringBalanceMode
	summaries *cache.SummaryCache
}

func NewCatalogService(store ledger.Store, mode RecurringBalanceMode, summaries *cache.SummaryCache) *CatalogService {
	if !mode.Valid() {
		mode = BalanceModeVault
	}
	return &CatalogService{store: store, mode: mode, summaries: summaries}
}

// Banks

func (s *CatalogService) CreateBank(ctx context.Context, userID int64, name, iconColor string) (core.Bank, error) {
	b := core.Bank{UserID: userID, Name: strings.TrimSpace(name), IconColor: iconColor}
	if err := b.Validate(); err != nil {
		return core.Bank{}, err
	}
	if err := s.store.CreateBank(ctx, &b); err != nil {
		return core.Bank{}, err
	}
	slog.InfoContext(ctx, "Bank created", applog.FieldUserID, userID, applog.FieldBankID, b.ID)
	return b, nil
}

// GetBank returns the bank with a freshly derived balance.
func (s *CatalogService) GetBank(ctx context.Context, userID, id int64) (core.Bank, error) {
	var bank core.Bank
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		b, err := tx.GetBank(ctx, userID, id)
		if err != nil {
			return err
		}
		if b.CurrentBalance, err = deriveBank(ctx, tx, b.ID); err != nil {
			return err
		}
		bank = b
		return nil
	})
	return bank, err
}

// ListBanks returns the user's banks, each re-derived.
func (s *CatalogService) ListBanks(ctx context.Context, userID int64) ([]core.Bank, error) {
	var banks []core.Bank
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		list, err := tx.ListBanks(ctx, userID)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].CurrentBalance, err = deriveBank(ctx, tx, list[i].ID); err != nil {
				return err
			}
		}
		banks = list
		return nil
	})
	return banks, err
}

func (s *CatalogService) UpdateBank(ctx context.Context, userID, id int64, name, iconColor string) (core.Bank, error) {
	b := core.Bank{ID: id, UserID: userID, Name: strings.TrimSpace(name), IconColor: iconColor}
	if err := b.Validate(); err != nil {
		return core.Bank{}, err
	}
	if err := s.store.UpdateBank(ctx, b); err != nil {
		return core.Bank{}, err
	}
	return s.GetBank(ctx, userID, id)
}

func (s *CatalogService) DeleteBank(ctx context.Context, userID, id int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		if _, err := tx.GetBank(ctx, userID, id); err != nil {
			return err
		}
		n, err := tx.CountVaultsByBank(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrBankHasVaults
		}
		return tx.DeleteBank(ctx, userID, id)
	})
}

// Vaults

// VaultInput carries the editable vault fields.
type VaultInput struct {
	BankID   int64
	Name     string
	Currency string
	Balance  core.Money
}

func (in VaultInput) vault(userID int64) core.Vault {
	v := core.Vault{
		UserID:   userID,
		BankID:   in.BankID,
		Name:     strings.TrimSpace(in.Name),
		Currency: strings.ToUpper(strings.TrimSpace(in.Currency)),
		Balance:  in.Balance,
	}
	if v.Currency == "" {
		v.Currency = core.DefaultCurrency
	}
	return v
}

// CreateVault opens a vault with an initial balance in one of the user's
// banks and re-derives that bank.
func (s *CatalogService) CreateVault(ctx context.Context, userID int64, in VaultInput) (core.Vault, error) {
	v := in.vault(userID)
	if err := v.Validate(); err != nil {
		return core.Vault{}, err
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		if _, err := tx.GetBank(ctx, userID, v.BankID); err != nil {
			return fmt.Errorf("bank %d: %w", v.BankID, err)
		}
		if err := tx.CreateVault(ctx, &v); err != nil {
			return err
		}
		_, err := deriveBank(ctx, tx, v.BankID)
		return err
	})
	if err != nil {
		return core.Vault{}, err
	}
	slog.InfoContext(ctx, "Vault created",
		applog.FieldUserID, userID,
		applog.FieldVaultID, v.ID,
		applog.FieldBankID, v.BankID,
		applog.FieldAmountCents, v.Balance.Cents)
	return v, nil
}

func (s *CatalogService) GetVault(ctx context.Context, userID, id int64) (core.Vault, error) {
	return s.store.GetVault(ctx, userID, id)
}

func (s *CatalogService) ListVaults(ctx context.Context, userID int64) ([]core.Vault, error) {
	return s.store.ListVaults(ctx, userID)
}

// UpdateVault edits a vault; when it moves between banks both are re-derived.
func (s *CatalogService) UpdateVault(ctx context.Context, userID, id int64, in VaultInput) (core.Vault, error) {
	v := in.vault(userID)
	v.ID = id
	if err := v.Validate(); err != nil {
		return core.Vault{}, err
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		old, err := tx.GetVault(ctx, userID, id)
		if err != nil {
			return err
		}
		if _, err := tx.GetBank(ctx, userID, v.BankID); err != nil {
			return fmt.Errorf("bank %d: %w", v.BankID, err)
		}
		v.CreatedAt = old.CreatedAt
		if err := tx.UpdateVault(ctx, v); err != nil {
			return err
		}
		if _, err := deriveBank(ctx, tx, v.BankID); err != nil {
			return err
		}
		if old.BankID != v.BankID {
			_, err = deriveBank(ctx, tx, old.BankID)
		}
		return err
	})
	if err != nil {
		return core.Vault{}, err
	}
	return v, nil
}

func (s *CatalogService) DeleteVault(ctx context.Context, userID, id int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		v, err := tx.GetVault(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteVault(ctx, userID, id); err != nil {
			return err
		}
		_, err = deriveBank(ctx, tx, v.BankID)
		return err
	})
}

// Categories

func (s *CatalogService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

func (s *CatalogService) CreateCategory(ctx context.Context, userID int64, name string, t core.TransactionType, icon string) (core.Category, error) {
	owner := userID
	c := core.Category{UserID: &owner, Name: strings.TrimSpace(name), Type: t, Icon: icon}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// ownedCategory loads a category the user may edit. System categories are a
// policy conflict; someone else's category does not exist for the caller.
func ownedCategory(ctx context.Context, tx ledger.Repository, userID, id int64) (core.Category, error) {
	c, err := tx.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.IsSystem {
		return core.Category{}, ErrSystemCategory
	}
	if !c.OwnedBy(userID) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, userID, id int64, name string, t core.TransactionType, icon string) (core.Category, error) {
	var updated core.Category
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		c, err := ownedCategory(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		c.Name = strings.TrimSpace(name)
		if t != "" {
			c.Type = t
		}
		c.Icon = icon
		if err := c.Validate(); err != nil {
			return err
		}
		updated = c
		return tx.UpdateCategory(ctx, c)
	})
	if err != nil {
		return core.Category{}, err
	}
	s.summaries.InvalidateUser(userID)
	return updated, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, userID, id int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		if _, err := ownedCategory(ctx, tx, userID, id); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, id)
	})
	if err == nil {
		s.summaries.InvalidateUser(userID)
	}
	return err
}

// Credit cards

func (s *CatalogService) CreateCreditCard(ctx context.Context, userID int64, c core.CreditCard) (core.CreditCard, error) {
	c.ID, c.UserID = 0, userID
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	if err := s.store.CreateCreditCard(ctx, &c); err != nil {
		return core.CreditCard{}, err
	}
	return c, nil
}

func (s *CatalogService) GetCreditCard(ctx context.Context, userID, id int64) (core.CreditCard, error) {
	return s.store.GetCreditCard(ctx, userID, id)
}

func (s *CatalogService) ListCreditCards(ctx context.Context, userID int64) ([]core.CreditCard, error) {
	return s.store.ListCreditCards(ctx, userID)
}

func (s *CatalogService) UpdateCreditCard(ctx context.Context, userID, id int64, c core.CreditCard) (core.CreditCard, error) {
	c.ID, c.UserID = id, userID
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	if err := s.store.UpdateCreditCard(ctx, c); err != nil {
		return core.CreditCard{}, err
	}
	return s.store.GetCreditCard(ctx, userID, id)
}

func (s *CatalogService) DeleteCreditCard(ctx context.Context, userID, id int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		if _, err := tx.GetCreditCard(ctx, userID, id); err != nil {
			return err
		}
		n, err := tx.CountTransactionsByCard(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrCardHasPurchases
		}
		return tx.DeleteCreditCard(ctx, userID, id)
	})
}

// Recurring templates

// RecurringInput creates a template.
type RecurringInput struct {
	Amount       core.Money
	Type         core.TransactionType
	CategoryID   *int64
	BankID       *int64
	VaultID      *int64
	CreditCardID *int64
	DayOfMonth   int
	Description  string
}

// RecurringUpdate changes the editable template fields; nil leaves a field
// untouched.
type RecurringUpdate struct {
	Amount      *core.Money
	DayOfMonth  *int
	Description *string
	IsActive    *bool
}

func (s *CatalogService) ListRecurring(ctx context.Context, userID int64) ([]core.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx, userID, false)
}

func (s *CatalogService) GetRecurring(ctx context.Context, userID, id int64) (core.RecurringTransaction, error) {
	return s.store.GetRecurring(ctx, userID, id)
}

func (s *CatalogService) CreateRecurring(ctx context.Context, userID int64, in RecurringInput) (core.RecurringTransaction, error) {
	r := core.RecurringTransaction{
		UserID:       userID,
		Amount:       in.Amount,
		Type:         in.Type,
		CategoryID:   in.CategoryID,
		BankID:       in.BankID,
		VaultID:      in.VaultID,
		CreditCardID: in.CreditCardID,
		DayOfMonth:   in.DayOfMonth,
		Description:  strings.TrimSpace(in.Description),
		IsActive:     true,
	}
	if err := s.validateTemplate(r); err != nil {
		return core.RecurringTransaction{}, err
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		if err := s.checkTemplateRefs(ctx, tx, &r); err != nil {
			return err
		}
		return tx.CreateRecurring(ctx, &r)
	})
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	slog.InfoContext(ctx, "Recurring template created",
		applog.FieldUserID, userID,
		applog.FieldRecurringID, r.ID,
		"day_of_month", r.DayOfMonth)
	return r, nil
}

func (s *CatalogService) UpdateRecurring(ctx context.Context, userID, id int64, in RecurringUpdate) (core.RecurringTransaction, error) {
	var updated core.RecurringTransaction
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		r, err := tx.GetRecurring(ctx, userID, id)
		if err != nil {
			return err
		}
		if in.Amount != nil {
			r.Amount = *in.Amount
		}
		if in.DayOfMonth != nil {
			r.DayOfMonth = *in.DayOfMonth
		}
		if in.Description != nil {
			r.Description = strings.TrimSpace(*in.Description)
		}
		if in.IsActive != nil {
			r.IsActive = *in.IsActive
		}
		if err := s.validateTemplate(r); err != nil {
			return err
		}
		updated = r
		return tx.UpdateRecurring(ctx, r)
	})
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	return updated, nil
}

func (s *CatalogService) DeleteRecurring(ctx context.Context, userID, id int64) error {
	return s.store.DeleteRecurring(ctx, userID, id)
}

func (s *CatalogService) validateTemplate(r core.RecurringTransaction) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if s.mode == BalanceModeVault && r.BankID != nil && r.VaultID == nil {
		return ErrTemplateNeedsVault
	}
	return nil
}

func (s *CatalogService) checkTemplateRefs(ctx context.Context, tx ledger.Repository, r *core.RecurringTransaction) error {
	if err := checkCategory(ctx, tx, r.UserID, r.CategoryID); err != nil {
		return err
	}
	if r.CreditCardID != nil {
		if _, err := tx.GetCreditCard(ctx, r.UserID, *r.CreditCardID); err != nil {
			return fmt.Errorf("credit card %d: %w", *r.CreditCardID, err)
		}
	}
	candidate := core.Transaction{BankID: r.BankID, VaultID: r.VaultID}
	if _, err := resolveSettlement(ctx, tx, r.UserID, &candidate); err != nil {
		return err
	}
	r.BankID = candidate.BankID
	return nil
}

// Budgets

func (s *CatalogService) CreateBudget(ctx context.Context, userID int64, b core.Budget) (core.Budget, error) {
	b.ID, b.UserID = 0, userID
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		if err := checkCategory(ctx, tx, userID, b.CategoryID); err != nil {
			return err
		}
		return tx.CreateBudget(ctx, &b)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *CatalogService) ListBudgets(ctx context.Context, userID int64, month, year int) ([]core.Budget, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	return s.store.ListBudgets(ctx, userID, month, year)
}

// Notifications

func (s *CatalogService) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]core.Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly)
}

func (s *CatalogService) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	return s.store.MarkNotificationRead(ctx, userID, id)
}
