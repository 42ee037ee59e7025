package services

import (
	"context"
	"fmt"
	"log/slog"

	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
	applog "sysfinance/internal/log"
)

// BalanceDeriver keeps Bank.CurrentBalance equal to the sum of the bank's
// vault balances.
type BalanceDeriver struct {
	store ledger.Store
}

func NewBalanceDeriver(store ledger.Store) *BalanceDeriver {
	return &BalanceDeriver{store: store}
}

// DeriveBankBalance recomputes and caches the balance of one bank in its own
// unit of work. Banks without vaults derive to zero.
func (d *BalanceDeriver) DeriveBankBalance(ctx context.Context, bankID int64) (core.Money, error) {
	var total core.Money
	err := d.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		var err error
		total, err = deriveBank(ctx, tx, bankID)
		return err
	})
	return total, err
}

// deriveBank is the in-transaction form used by every vault mutation.
func deriveBank(ctx context.Context, repo ledger.Repository, bankID int64) (core.Money, error) {
	total, err := repo.SumVaultBalances(ctx, bankID)
	if err != nil {
		return core.Money{}, fmt.Errorf("derive bank %d: %w", bankID, err)
	}
	if err := repo.SetBankBalance(ctx, bankID, total); err != nil {
		return core.Money{}, fmt.Errorf("derive bank %d: %w", bankID, err)
	}
	slog.DebugContext(ctx, "Bank balance derived",
		applog.FieldBankID, bankID,
		applog.FieldAmountCents, total.Cents)
	return total, nil
}

// applyVaultDelta shifts a vault balance and re-derives its bank.
func applyVaultDelta(ctx context.Context, repo ledger.Repository, vault core.Vault, delta core.Money) error {
	if err := repo.AddVaultBalance(ctx, vault.ID, delta); err != nil {
		return fmt.Errorf("update vault %d balance: %w", vault.ID, err)
	}
	_, err := deriveBank(ctx, repo, vault.BankID)
	return err
}
