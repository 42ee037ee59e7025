package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sysfinance/internal/core"
	"sysfinance/internal/ledger"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db  *sql.DB
	q   querier
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dataSourceName(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps units of work
	// strictly ordered.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn inside a database transaction. The repository handed to fn
// issues every statement on that transaction.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Repository) error) error {
	if _, nested := r.q.(*sql.Tx); nested {
		return fn(ctx, r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &SQLiteRepository{db: r.db, q: tx, now: r.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	createdAt := r.timestamp()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, full_name, monthly_salary_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.FullName, u.MonthlySalary.Cents, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already registered", core.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = parseTimestamp(createdAt)
	return nil
}

const userColumns = `id, email, password_hash, full_name, monthly_salary_cents, created_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var u core.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.MonthlySalary.Cents, &createdAt); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, notFound("get user", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return core.User{}, notFound("get user by email", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (int64, error) {
		var id int64
		err := rows.Scan(&id)
		return id, err
	})
}

// Banks

const bankColumns = `id, user_id, name, icon_color, current_balance_cents, created_at`

func scanBank(row interface{ Scan(...any) error }) (core.Bank, error) {
	var b core.Bank
	var createdAt string
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.IconColor, &b.CurrentBalance.Cents, &createdAt); err != nil {
		return core.Bank{}, err
	}
	b.CreatedAt = parseTimestamp(createdAt)
	return b, nil
}

func (r *SQLiteRepository) CreateBank(ctx context.Context, b *core.Bank) error {
	createdAt := r.timestamp()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO banks (user_id, name, icon_color, current_balance_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.Name, b.IconColor, b.CurrentBalance.Cents, createdAt)
	if err != nil {
		return fmt.Errorf("create bank: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create bank: %w", err)
	}
	b.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) GetBank(ctx context.Context, userID, id int64) (core.Bank, error) {
	b, err := scanBank(r.q.QueryRowContext(ctx,
		`SELECT `+bankColumns+` FROM banks WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Bank{}, notFound("get bank", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBanks(ctx context.Context, userID int64) ([]core.Bank, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+bankColumns+` FROM banks WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (core.Bank, error) { return scanBank(rows) })
}

func (r *SQLiteRepository) UpdateBank(ctx context.Context, b core.Bank) error {
	res, err := r.q.ExecContext(ctx, `UPDATE banks SET name = ?, icon_color = ? WHERE id = ? AND user_id = ?`,
		b.Name, b.IconColor, b.ID, b.UserID)
	return affected("update bank", res, err)
}

func (r *SQLiteRepository) DeleteBank(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM banks WHERE id = ? AND user_id = ?`, id, userID)
	return affected("delete bank", res, err)
}

func (r *SQLiteRepository) SetBankBalance(ctx context.Context, bankID int64, balance core.Money) error {
	res, err := r.q.ExecContext(ctx, `UPDATE banks SET current_balance_cents = ? WHERE id = ?`, balance.Cents, bankID)
	return affected("set bank balance", res, err)
}

func (r *SQLiteRepository) AddBankBalance(ctx context.Context, bankID int64, delta core.Money) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE banks SET current_balance_cents = current_balance_cents + ? WHERE id = ?`, delta.Cents, bankID)
	return affected("add bank balance", res, err)
}

// Vaults

const vaultColumns = `id, user_id, bank_id, name, currency, balance_cents, created_at`

func scanVault(row interface{ Scan(...any) error }) (core.Vault, error) {
	var v core.Vault
	var createdAt string
	if err := row.Scan(&v.ID, &v.UserID, &v.BankID, &v.Name, &v.Currency, &v.Balance.Cents, &createdAt); err != nil {
		return core.Vault{}, err
	}
	v.CreatedAt = parseTimestamp(createdAt)
	return v, nil
}

func (r *SQLiteRepository) CreateVault(ctx context.Context, v *core.Vault) error {
	createdAt := r.timestamp()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO vaults (user_id, bank_id, name, currency, balance_cents, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		v.UserID, v.BankID, v.Name, v.Currency, v.Balance.Cents, createdAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("create vault: bank %d: %w", v.BankID, core.ErrNotFound)
		}
		return fmt.Errorf("create vault: %w", err)
	}
	if v.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create vault: %w", err)
	}
	v.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) GetVault(ctx context.Context, userID, id int64) (core.Vault, error) {
	v, err := scanVault(r.q.QueryRowContext(ctx,
		`SELECT `+vaultColumns+` FROM vaults WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Vault{}, notFound("get vault", err)
	}
	return v, nil
}

func (r *SQLiteRepository) ListVaults(ctx context.Context, userID int64) ([]core.Vault, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	return collectRows(rows, func(rows *sql.Rows) (core.Vault, error) { return scanVault(rows) })
}

func (r *SQLiteRepository) UpdateVault(ctx context.Context, v core.Vault) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE vaults SET name = ?, bank_id = ?, currency = ?, balance_cents = ? WHERE id = ? AND user_id = ?`,
		v.Name, v.BankID, v.Currency, v.Balance.Cents, v.ID, v.UserID)
	if err != nil && isForeignKeyViolation(err) {
		return fmt.Errorf("update vault: bank %d: %w", v.BankID, core.ErrNotFound)
	}
	return affected("update vault", res, err)
}

func (r *SQLiteRepository) DeleteVault(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM vaults WHERE id = ? AND user_id = ?`, id, userID)
	return affected("delete vault", res, err)
}

func (r *SQLiteRepository) AddVaultBalance(ctx context.Context, vaultID int64, delta core.Money) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE vaults SET balance_cents = balance_cents + ? WHERE id = ?`, delta.Cents, vaultID)
	return affected("add vault balance", res, err)
}

func (r *SQLiteRepository) CountVaultsByBank(ctx context.Context, bankID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM vaults WHERE bank_id = ?`, bankID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vaults: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SumVaultBalances(ctx context.Context, bankID int64) (core.Money, error) {
	var sum int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance_cents), 0) FROM vaults WHERE bank_id = ?`, bankID).Scan(&sum)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum vault balances: %w", err)
	}
	return core.Money{Cents: sum}, nil
}

// helpers

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		slog.Warn("Unparseable timestamp in database", "value", s, "error", err)
		return time.Time{}
	}
	return t
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(op string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func collectRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func sqliteCode(err error) (int, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

func isUniqueViolation(err error) bool {
	if code, ok := sqliteCode(err); ok {
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
