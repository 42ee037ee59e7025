package services

import (
	"context"
	"fmt"

	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
)

// createInstallments writes a credit-card purchase as n monthly rows. A
// single payment is stored as installment 1/1. Card purchases never touch
// vault or bank balances.
func createInstallments(ctx context.Context, tx ledger.Repository, purchase core.Transaction, n int) ([]core.Transaction, error) {
	if n == 1 {
		purchase.InstallmentNumber, purchase.TotalInstallments = 1, 1
		if err := tx.CreateTransaction(ctx, &purchase); err != nil {
			return nil, err
		}
		return []core.Transaction{purchase}, nil
	}

	parts, err := core.SplitInstallments(purchase.Amount, n, purchase.Date, purchase.Description)
	if err != nil {
		return nil, err
	}

	rows := make([]core.Transaction, 0, n)
	for _, p := range parts {
		t := purchase
		t.Amount = p.Amount
		t.Date = p.Date
		t.Description = p.Description
		t.InstallmentNumber = p.Number
		t.TotalInstallments = p.Total
		if err := tx.CreateTransaction(ctx, &t); err != nil {
			return nil, fmt.Errorf("installment %d/%d: %w", p.Number, p.Total, err)
		}
		rows = append(rows, t)
	}
	return rows, nil
}
