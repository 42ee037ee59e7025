// Package ledger declares the persistence ports of the ledger. Every read
// that takes a userID is ownership scoped: rows owned by someone else are
// reported as core.ErrNotFound.
package ledger

import (
	"context"

	"sysfinance/internal/core"
)

type (
	UserRepository interface {
		CreateUser(ctx context.Context, u *core.User) error
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		ListUserIDs(ctx context.Context) ([]int64, error)
	}

	BankRepository interface {
		CreateBank(ctx context.Context, b *core.Bank) error
		GetBank(ctx context.Context, userID, id int64) (core.Bank, error)
		ListBanks(ctx context.Context, userID int64) ([]core.Bank, error)
		UpdateBank(ctx context.Context, b core.Bank) error
		DeleteBank(ctx context.Context, userID, id int64) error
		// SetBankBalance overwrites the cached balance.
		SetBankBalance(ctx context.Context, bankID int64, balance core.Money) error
		// AddBankBalance shifts the cached balance by delta.
		AddBankBalance(ctx context.Context, bankID int64, delta core.Money) error
	}

	VaultRepository interface {
		CreateVault(ctx context.Context, v *core.Vault) error
		GetVault(ctx context.Context, userID, id int64) (core.Vault, error)
		ListVaults(ctx context.Context, userID int64) ([]core.Vault, error)
		UpdateVault(ctx context.Context, v core.Vault) error
		DeleteVault(ctx context.Context, userID, id int64) error
		AddVaultBalance(ctx context.Context, vaultID int64, delta core.Money) error
		CountVaultsByBank(ctx context.Context, bankID int64) (int, error)
		SumVaultBalances(ctx context.Context, bankID int64) (core.Money, error)
	}

	CategoryRepository interface {
		CreateCategory(ctx context.Context, c *core.Category) error
		// GetCategory is not ownership scoped; callers check visibility.
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		// ListCategories returns the system categories plus the user's own.
		ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id int64) error
	}

	CreditCardRepository interface {
		CreateCreditCard(ctx context.Context, c *core.CreditCard) error
		GetCreditCard(ctx context.Context, userID, id int64) (core.CreditCard, error)
		ListCreditCards(ctx context.Context, userID int64) ([]core.CreditCard, error)
		UpdateCreditCard(ctx context.Context, c core.CreditCard) error
		DeleteCreditCard(ctx context.Context, userID, id int64) error
		CountTransactionsByCard(ctx context.Context, cardID int64) (int, error)
	}

	TransactionRepository interface {
		// CreateTransaction returns core.ErrConflict when a row for the same
		// recurring template and period already exists.
		CreateTransaction(ctx context.Context, t *core.Transaction) error
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id int64) error
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		RecurringOccurrenceExists(ctx context.Context, recurringID int64, year, month int) (bool, error)
	}

	RecurringRepository interface {
		CreateRecurring(ctx context.Context, r *core.RecurringTransaction) error
		GetRecurring(ctx context.Context, userID, id int64) (core.RecurringTransaction, error)
		ListRecurring(ctx context.Context, userID int64, activeOnly bool) ([]core.RecurringTransaction, error)
		UpdateRecurring(ctx context.Context, r core.RecurringTransaction) error
		DeleteRecurring(ctx context.Context, userID, id int64) error
	}

	BudgetRepository interface {
		CreateBudget(ctx context.Context, b *core.Budget) error
		ListBudgets(ctx context.Context, userID int64, month, year int) ([]core.Budget, error)
	}

	NotificationRepository interface {
		CreateNotification(ctx context.Context, n *core.Notification) error
		ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]core.Notification, error)
		MarkNotificationRead(ctx context.Context, userID, id int64) error
	}

	// Repository is the full set of ledger persistence operations.
	Repository interface {
		UserRepository
		BankRepository
		VaultRepository
		CategoryRepository
		CreditCardRepository
		TransactionRepository
		RecurringRepository
		BudgetRepository
		NotificationRepository
	}

	// Store is a Repository that can run a unit of work. Everything fn does
	// through tx commits together or not at all; fn must not use the outer
	// store while it runs.
	Store interface {
		Repository
		InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
		Close() error
	}
)

// TransactionFilter selects a user's transactions. Month and Year filter only
// when both are non-zero. Results are ordered by date then id, newest first
// unless Ascending is set.
type TransactionFilter struct {
	UserID    int64
	Month     int
	Year      int
	Ascending bool
}

// HasPeriod reports whether the filter restricts to one month.
func (f TransactionFilter) HasPeriod() bool {
	return f.Month != 0 && f.Year != 0
}
