package storage

import (
	"context"
	"database/sql"
	"fmt"

	"sysfinance/internal/core"
)

// Categories

const categoryColumns = `id, user_id, name, type, icon, is_system`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var userID sql.NullInt64
	var catType string
	if err := row.Scan(&c.ID, &userID, &c.Name, &catType, &c.Icon, &c.IsSystem); err != nil {
		return core.Category{}, err
	}
	c.UserID = idPtr(userID)
	c.Type = core.TransactionType(catType)
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, type, icon, is_system) VALUES (?, ?, ?, ?, ?)`,
		nullableID(c.UserID), c.Name, string(c.Type), c.Icon, c.IsSystem)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(r.q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return core.Category{}, notFound("get category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE is_system = 1 OR user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (core.Category, error) { return scanCategory(rows) })
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.q.ExecContext(ctx, `UPDATE categories SET name = ?, type = ?, icon = ? WHERE id = ?`,
		c.Name, string(c.Type), c.Icon, c.ID)
	return affected("update category", res, err)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return affected("delete category", res, err)
}

// Credit cards

const cardColumns = `id, user_id, name, limit_cents, closing_day, due_day, color, created_at`

func scanCard(row interface{ Scan(...any) error }) (core.CreditCard, error) {
	var c core.CreditCard
	var createdAt string
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Limit.Cents, &c.ClosingDay, &c.DueDay, &c.Color, &createdAt); err != nil {
		return core.CreditCard{}, err
	}
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

func (r *SQLiteRepository) CreateCreditCard(ctx context.Context, c *core.CreditCard) error {
	createdAt := r.timestamp()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO credit_cards (user_id, name, limit_cents, closing_day, due_day, color, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Limit.Cents, c.ClosingDay, c.DueDay, c.Color, createdAt)
	if err != nil {
		return fmt.Errorf("create credit card: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create credit card: %w", err)
	}
	c.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) GetCreditCard(ctx context.Context, userID, id int64) (core.CreditCard, error) {
	c, err := scanCard(r.q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.CreditCard{}, notFound("get credit card", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCreditCards(ctx context.Context, userID int64) ([]core.CreditCard, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+cardColumns+` FROM credit_cards WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (core.CreditCard, error) { return scanCard(rows) })
}

func (r *SQLiteRepository) UpdateCreditCard(ctx context.Context, c core.CreditCard) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE credit_cards SET name = ?, limit_cents = ?, closing_day = ?, due_day = ?, color = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Limit.Cents, c.ClosingDay, c.DueDay, c.Color, c.ID, c.UserID)
	return affected("update credit card", res, err)
}

func (r *SQLiteRepository) DeleteCreditCard(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil && isForeignKeyViolation(err) {
		return fmt.Errorf("delete credit card: linked transactions: %w", core.ErrConflict)
	}
	return affected("delete credit card", res, err)
}

// Recurring templates

const recurringColumns = `id, user_id, amount_cents, type, category_id, bank_id, vault_id, credit_card_id,
	day_of_month, description, is_active, created_at`

func scanRecurring(row interface{ Scan(...any) error }) (core.RecurringTransaction, error) {
	var (
		rt                                  core.RecurringTransaction
		rtType, createdAt                   string
		categoryID, bankID, vaultID, cardID sql.NullInt64
	)
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Amount.Cents, &rtType, &categoryID, &bankID, &vaultID, &cardID,
		&rt.DayOfMonth, &rt.Description, &rt.IsActive, &createdAt)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.Type = core.TransactionType(rtType)
	rt.CategoryID = idPtr(categoryID)
	rt.BankID = idPtr(bankID)
	rt.VaultID = idPtr(vaultID)
	rt.CreditCardID = idPtr(cardID)
	rt.CreatedAt = parseTimestamp(createdAt)
	return rt, nil
}

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	createdAt := r.timestamp()
	res, err := r.q.ExecContext(ctx, `INSERT INTO recurring_transactions (
			user_id, amount_cents, type, category_id, bank_id, vault_id, credit_card_id,
			day_of_month, description, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.UserID, rt.Amount.Cents, string(rt.Type),
		nullableID(rt.CategoryID), nullableID(rt.BankID), nullableID(rt.VaultID), nullableID(rt.CreditCardID),
		rt.DayOfMonth, rt.Description, rt.IsActive, createdAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("create recurring: referenced row: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create recurring: %w", err)
	}
	if rt.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create recurring: %w", err)
	}
	rt.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, userID, id int64) (core.RecurringTransaction, error) {
	rt, err := scanRecurring(r.q.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.RecurringTransaction{}, notFound("get recurring", err)
	}
	return rt, nil
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context, userID int64, activeOnly bool) ([]core.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	rows, err := r.q.QueryContext(ctx, query+` ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (core.RecurringTransaction, error) { return scanRecurring(rows) })
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	res, err := r.q.ExecContext(ctx, `UPDATE recurring_transactions SET
			amount_cents = ?, type = ?, category_id = ?, bank_id = ?, vault_id = ?, credit_card_id = ?,
			day_of_month = ?, description = ?, is_active = ?
		WHERE id = ? AND user_id = ?`,
		rt.Amount.Cents, string(rt.Type),
		nullableID(rt.CategoryID), nullableID(rt.BankID), nullableID(rt.VaultID), nullableID(rt.CreditCardID),
		rt.DayOfMonth, rt.Description, rt.IsActive, rt.ID, rt.UserID)
	return affected("update recurring", res, err)
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID)
	return affected("delete recurring", res, err)
}

// Budgets

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, month, year, amount_cents) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, nullableID(b.CategoryID), b.Month, b.Year, b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64, month, year int) ([]core.Budget, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, category_id, month, year, amount_cents FROM budgets
		 WHERE user_id = ? AND month = ? AND year = ? ORDER BY id`, userID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (core.Budget, error) {
		var b core.Budget
		var categoryID sql.NullInt64
		err := rows.Scan(&b.ID, &b.UserID, &categoryID, &b.Month, &b.Year, &b.Amount.Cents)
		b.CategoryID = idPtr(categoryID)
		return b, err
	})
}

// Notifications

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n *core.Notification) error {
	createdAt := r.timestamp()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO notifications (user_id, title, message, read, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.Title, n.Message, n.Read, createdAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	n.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]core.Notification, error) {
	query := `SELECT id, user_id, title, message, read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	rows, err := r.q.QueryContext(ctx, query+` ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (core.Notification, error) {
		var n core.Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Read, &createdAt); err != nil {
			return core.Notification{}, err
		}
		n.CreatedAt = parseTimestamp(createdAt)
		return n, nil
	})
}

func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	return affected("mark notification read", res, err)
}
