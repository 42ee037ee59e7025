package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
)

const transactionColumns = `id, user_id, amount_cents, type, category_id, bank_id, vault_id, credit_card_id,
	installment_number, total_installments, date, description, recurring_id, recurring_year, recurring_month, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t                                   core.Transaction
		txType, date, createdAt             string
		categoryID, bankID, vaultID, cardID sql.NullInt64
		installment, total                  sql.NullInt64
		recurringID, recYear, recMonth      sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &txType, &categoryID, &bankID, &vaultID, &cardID,
		&installment, &total, &date, &t.Description, &recurringID, &recYear, &recMonth, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(txType)
	t.Date = d
	t.CategoryID = idPtr(categoryID)
	t.BankID = idPtr(bankID)
	t.VaultID = idPtr(vaultID)
	t.CreditCardID = idPtr(cardID)
	t.InstallmentNumber = int(installment.Int64)
	t.TotalInstallments = int(total.Int64)
	t.RecurringID = idPtr(recurringID)
	t.RecurringYear = int(recYear.Int64)
	t.RecurringMonth = int(recMonth.Int64)
	t.CreatedAt = parseTimestamp(createdAt)
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	createdAt := r.timestamp()
	res, err := r.q.ExecContext(ctx, `INSERT INTO transactions (
			user_id, amount_cents, type, category_id, bank_id, vault_id, credit_card_id,
			installment_number, total_installments, date, description,
			recurring_id, recurring_year, recurring_month, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Amount.Cents, string(t.Type),
		nullableID(t.CategoryID), nullableID(t.BankID), nullableID(t.VaultID), nullableID(t.CreditCardID),
		nullableInt(t.InstallmentNumber), nullableInt(t.TotalInstallments),
		t.Date.String(), t.Description,
		nullableID(t.RecurringID), nullableInt(t.RecurringYear), nullableInt(t.RecurringMonth),
		createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create transaction: recurring occurrence already exists: %w", core.ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("create transaction: referenced row: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	t.CreatedAt = parseTimestamp(createdAt)

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Transaction{}, notFound("get transaction", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return affected("delete transaction", res, err)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{f.UserID}
	if f.HasPeriod() {
		query += ` AND substr(date, 1, 7) = ?`
		args = append(args, fmt.Sprintf("%04d-%02d", f.Year, f.Month))
	}
	if f.Ascending {
		query += ` ORDER BY date ASC, id ASC`
	} else {
		query += ` ORDER BY date DESC, id DESC`
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (core.Transaction, error) { return scanTransaction(rows) })
}

func (r *SQLiteRepository) RecurringOccurrenceExists(ctx context.Context, recurringID int64, year, month int) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE recurring_id = ? AND recurring_year = ? AND recurring_month = ?)`,
		recurringID, year, month).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recurring occurrence: %w", err)
	}
	return exists, nil
}

func (r *SQLiteRepository) CountTransactionsByCard(ctx context.Context, cardID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE credit_card_id = ?`, cardID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count card transactions: %w", err)
	}
	return n, nil
}
