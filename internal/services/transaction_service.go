package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sysfinance/internal/amqp"
	"sysfinance/internal/cache"
	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
	applog "sysfinance/internal/log"
)

// CreateTransactionInput is a transaction request. Installments of 0 mean a
// single payment.
type CreateTransactionInput struct {
	Amount       core.Money
	Type         core.TransactionType
	CategoryID   *int64
	BankID       *int64
	VaultID      *int64
	CreditCardID *int64
	Installments int
	Date         core.Date
	Description  string
}

var (
	ErrNoSettlement         = fmt.Errorf("%w: a transaction needs a bank, a vault or a credit card", core.ErrInvalidInput)
	ErrVaultAndCard         = fmt.Errorf("%w: a transaction cannot settle on both a vault and a credit card", core.ErrInvalidInput)
	ErrInstallmentsNeedCard = fmt.Errorf("%w: installments require a credit card", core.ErrInvalidInput)
	ErrVaultBankMismatch    = fmt.Errorf("%w: vault does not belong to the given bank", core.ErrInvalidInput)
)

// TransactionService writes ledger transactions and keeps vault and bank
// balances consistent with them.
type TransactionService struct {
	store     ledger.Store
	summaries *cache.SummaryCache
	publisher EventPublisher
}

func NewTransactionService(store ledger.Store, summaries *cache.SummaryCache, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		summaries: summaries,
		publisher: publisher,
	}
}

func (in CreateTransactionInput) validate() error {
	if !in.Type.Valid() {
		return core.ErrInvalidType
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if in.Installments < 0 {
		return core.ErrInvalidInstallment
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(in.Description)) > core.MaxDescriptionLen {
		return core.ErrDescriptionTooLong
	}
	if in.VaultID != nil && in.CreditCardID != nil {
		return ErrVaultAndCard
	}
	if in.CreditCardID == nil {
		if in.Installments > 1 {
			return ErrInstallmentsNeedCard
		}
		if in.BankID == nil && in.VaultID == nil {
			return ErrNoSettlement
		}
	}
	return nil
}

// Create records a transaction. A credit-card purchase with more than one
// installment is split and the first installment is returned.
func (s *TransactionService) Create(ctx context.Context, userID int64, in CreateTransactionInput) (core.Transaction, error) {
	if in.Installments == 0 {
		in.Installments = 1
	}
	if err := in.validate(); err != nil {
		return core.Transaction{}, err
	}

	base := core.Transaction{
		UserID:       userID,
		Amount:       in.Amount,
		Type:         in.Type,
		CategoryID:   in.CategoryID,
		BankID:       in.BankID,
		VaultID:      in.VaultID,
		CreditCardID: in.CreditCardID,
		Date:         in.Date,
		Description:  strings.TrimSpace(in.Description),
	}

	var created []core.Transaction
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		if err := checkCategory(ctx, tx, userID, base.CategoryID); err != nil {
			return err
		}

		if base.CreditCardID != nil {
			if _, err := tx.GetCreditCard(ctx, userID, *base.CreditCardID); err != nil {
				return fmt.Errorf("credit card %d: %w", *base.CreditCardID, err)
			}
			if base.BankID != nil {
				if _, err := tx.GetBank(ctx, userID, *base.BankID); err != nil {
					return fmt.Errorf("bank %d: %w", *base.BankID, err)
				}
			}
			rows, err := createInstallments(ctx, tx, base, in.Installments)
			created = rows
			return err
		}

		vault, err := resolveSettlement(ctx, tx, userID, &base)
		if err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, &base); err != nil {
			return err
		}
		created = []core.Transaction{base}

		if vault != nil {
			return applyVaultDelta(ctx, tx, *vault, base.Type.Signed(base.Amount))
		}
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Transaction rejected",
			applog.FieldUserID, userID,
			applog.FieldTxType, in.Type,
			applog.FieldAmountCents, in.Amount.Cents,
			applog.FieldError, err)
		return core.Transaction{}, err
	}

	for _, t := range created {
		s.summaries.Invalidate(userID, t.Date.Year(), t.Date.Month())
	}
	first := created[0]
	slog.InfoContext(ctx, "Transaction created",
		applog.FieldUserID, userID,
		applog.FieldTxID, first.ID,
		applog.FieldTxType, first.Type,
		applog.FieldAmountCents, in.Amount.Cents,
		"rows", len(created))
	publishEvent(ctx, s.publisher, transactionEvent(amqp.TransactionCreated, first))
	return first, nil
}

// resolveSettlement checks ownership of the bank and vault on t, fills in
// the vault's bank when only the vault was given and returns the vault.
func resolveSettlement(ctx context.Context, tx ledger.Repository, userID int64, t *core.Transaction) (*core.Vault, error) {
	var vault *core.Vault
	if t.VaultID != nil {
		v, err := tx.GetVault(ctx, userID, *t.VaultID)
		if err != nil {
			return nil, fmt.Errorf("vault %d: %w", *t.VaultID, err)
		}
		if t.BankID == nil {
			bankID := v.BankID
			t.BankID = &bankID
		} else if *t.BankID != v.BankID {
			return nil, ErrVaultBankMismatch
		}
		vault = &v
	}
	if t.BankID != nil {
		if _, err := tx.GetBank(ctx, userID, *t.BankID); err != nil {
			return nil, fmt.Errorf("bank %d: %w", *t.BankID, err)
		}
	}
	return vault, nil
}

func checkCategory(ctx context.Context, tx ledger.Repository, userID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	c, err := tx.GetCategory(ctx, *categoryID)
	if err != nil {
		return fmt.Errorf("category %d: %w", *categoryID, err)
	}
	if !c.VisibleTo(userID) {
		return fmt.Errorf("category %d: %w", *categoryID, core.ErrNotFound)
	}
	return nil
}

// Delete removes a transaction and reverses its vault balance effect.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	var deleted core.Transaction
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		t, err := tx.GetTransaction(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", id, err)
		}
		if err := tx.DeleteTransaction(ctx, userID, id); err != nil {
			return err
		}
		deleted = t

		if t.VaultID == nil {
			return nil
		}
		v, err := tx.GetVault(ctx, userID, *t.VaultID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return applyVaultDelta(ctx, tx, v, t.Type.Signed(t.Amount).Neg())
	})
	if err != nil {
		return err
	}

	s.summaries.Invalidate(userID, deleted.Date.Year(), deleted.Date.Month())
	slog.InfoContext(ctx, "Transaction deleted",
		applog.FieldUserID, userID,
		applog.FieldTxID, id,
		applog.FieldAmountCents, deleted.Amount.Cents)
	publishEvent(ctx, s.publisher, transactionEvent(amqp.TransactionDeleted, deleted))
	return nil
}

// List returns the user's transactions, newest first. The month filter
// applies only when both month and year are non-zero.
func (s *TransactionService) List(ctx context.Context, userID int64, month, year int) ([]core.Transaction, error) {
	f := ledger.TransactionFilter{UserID: userID, Month: month, Year: year}
	if f.HasPeriod() {
		if err := core.ValidatePeriod(month, year); err != nil {
			return nil, err
		}
	} else {
		f.Month, f.Year = 0, 0
	}
	return s.store.ListTransactions(ctx, f)
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}
