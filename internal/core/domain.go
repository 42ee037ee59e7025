package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultCurrency is assigned to vaults created without an explicit currency.
const DefaultCurrency = "BRL"

// MaxDescriptionLen bounds user supplied descriptions.
const MaxDescriptionLen = 200

// AutoPrefix marks descriptions of transactions produced by the recurring generator.
const AutoPrefix = "[Auto] "

type (
	TransactionType string

	User struct {
		ID            int64     `json:"id"`
		Email         string    `json:"email"`
		PasswordHash  string    `json:"-"`
		FullName      string    `json:"full_name,omitempty"`
		MonthlySalary Money     `json:"monthly_salary"`
		CreatedAt     time.Time `json:"created_at"`
	}

	// Bank is a container of vaults. CurrentBalance is a cache of the sum of
	// the owned vault balances and is rewritten on every derivation.
	Bank struct {
		ID             int64     `json:"id"`
		UserID         int64     `json:"user_id"`
		Name           string    `json:"name"`
		IconColor      string    `json:"icon_color"`
		CurrentBalance Money     `json:"current_balance"`
		CreatedAt      time.Time `json:"created_at"`
	}

	// Vault is a sub-account of a bank and the authoritative holder of money.
	Vault struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"user_id"`
		BankID    int64     `json:"bank_id"`
		Name      string    `json:"name"`
		Currency  string    `json:"currency"`
		Balance   Money     `json:"balance"`
		CreatedAt time.Time `json:"created_at"`
	}

	Category struct {
		ID       int64           `json:"id"`
		UserID   *int64          `json:"user_id"`
		Name     string          `json:"name"`
		Type     TransactionType `json:"type"`
		Icon     string          `json:"icon"`
		IsSystem bool            `json:"is_system"`
	}

	CreditCard struct {
		ID         int64     `json:"id"`
		UserID     int64     `json:"user_id"`
		Name       string    `json:"name"`
		Limit      Money     `json:"limit"`
		ClosingDay int       `json:"closing_day"`
		DueDay     int       `json:"due_day"`
		Color      string    `json:"color"`
		CreatedAt  time.Time `json:"created_at"`
	}

	// Transaction is a dated income or expense entry. InstallmentNumber and
	// TotalInstallments are either both zero or both set. RecurringID,
	// RecurringYear and RecurringMonth identify the template occurrence that
	// produced the row, if any.
	Transaction struct {
		ID                int64           `json:"id"`
		UserID            int64           `json:"user_id"`
		Amount            Money           `json:"amount"`
		Type              TransactionType `json:"type"`
		CategoryID        *int64          `json:"category_id"`
		BankID            *int64          `json:"bank_id"`
		VaultID           *int64          `json:"vault_id"`
		CreditCardID      *int64          `json:"credit_card_id"`
		InstallmentNumber int             `json:"installment_number,omitempty"`
		TotalInstallments int             `json:"total_installments,omitempty"`
		Date              Date            `json:"date"`
		Description       string          `json:"description"`
		RecurringID       *int64          `json:"recurring_id,omitempty"`
		RecurringYear     int             `json:"-"`
		RecurringMonth    int             `json:"-"`
		CreatedAt         time.Time       `json:"created_at"`
	}

	RecurringTransaction struct {
		ID           int64           `json:"id"`
		UserID       int64           `json:"user_id"`
		Amount       Money           `json:"amount"`
		Type         TransactionType `json:"type"`
		CategoryID   *int64          `json:"category_id"`
		BankID       *int64          `json:"bank_id"`
		VaultID      *int64          `json:"vault_id"`
		CreditCardID *int64          `json:"credit_card_id"`
		DayOfMonth   int             `json:"day_of_month"`
		Description  string          `json:"description"`
		IsActive     bool            `json:"is_active"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	Budget struct {
		ID         int64  `json:"id"`
		UserID     int64  `json:"user_id"`
		CategoryID *int64 `json:"category_id"`
		Month      int    `json:"month"`
		Year       int    `json:"year"`
		Amount     Money  `json:"amount"`
	}

	Notification struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"user_id"`
		Title     string    `json:"title"`
		Message   string    `json:"message"`
		Read      bool      `json:"read"`
		CreatedAt time.Time `json:"created_at"`
	}
)

var (
	ErrInvalidDay         = fmt.Errorf("%w: invalid day", ErrInvalidInput)
	ErrInvalidMonth       = fmt.Errorf("%w: invalid month", ErrInvalidInput)
	ErrInvalidYear        = fmt.Errorf("%w: invalid year", ErrInvalidInput)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrInvalidType        = fmt.Errorf("%w: type must be income or expense", ErrInvalidInput)
	ErrEmptyName          = fmt.Errorf("%w: empty name", ErrInvalidInput)
	ErrEmptyDescription   = fmt.Errorf("%w: empty description", ErrInvalidInput)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidInput)
	ErrInvalidInstallment = fmt.Errorf("%w: installments must be at least 1", ErrInvalidInput)
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Signed returns the balance delta of amount under this type: positive for
// income, negative for expense.
func (t TransactionType) Signed(amount Money) Money {
	if t == Expense {
		return Money{Cents: -amount.Cents}
	}
	return amount
}

// VisibleTo reports whether the category can be read and referenced by userID.
func (c Category) VisibleTo(userID int64) bool {
	return c.IsSystem || (c.UserID != nil && *c.UserID == userID)
}

// OwnedBy reports whether the category is a user category owned by userID.
func (c Category) OwnedBy(userID int64) bool {
	return !c.IsSystem && c.UserID != nil && *c.UserID == userID
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (b Bank) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (v Vault) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrEmptyName
	}
	if v.BankID == 0 {
		return fmt.Errorf("%w: vault requires a bank", ErrInvalidInput)
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Limit.Cents < 0 {
		return fmt.Errorf("%w: limit cannot be negative", ErrInvalidInput)
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return fmt.Errorf("%w: closing day must be between 1 and 31", ErrInvalidInput)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return fmt.Errorf("%w: due day must be between 1 and 31", ErrInvalidInput)
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if (t.InstallmentNumber == 0) != (t.TotalInstallments == 0) {
		return fmt.Errorf("%w: installment number and total must be set together", ErrInvalidInput)
	}
	if t.TotalInstallments > 0 && (t.InstallmentNumber < 1 || t.InstallmentNumber > t.TotalInstallments) {
		return ErrInvalidInstallment
	}
	return nil
}

// IsRecurring reports whether the row was produced from a recurring template.
func (t Transaction) IsRecurring() bool {
	return t.RecurringID != nil
}

func (r RecurringTransaction) Validate() error {
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if len(r.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if r.VaultID != nil && r.CreditCardID != nil {
		return fmt.Errorf("%w: a template cannot reference both a vault and a credit card", ErrInvalidInput)
	}
	return nil
}

// OccurrenceDate returns the date the template fires in the given month.
// Days that do not exist in the month fall back to day 1.
func (r RecurringTransaction) OccurrenceDate(year, month int) Date {
	day := r.DayOfMonth
	if day < 1 || day > DaysInMonth(year, month) {
		day = 1
	}
	return NewDate(year, month, day)
}

func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return ValidatePeriod(b.Month, b.Year)
}

// ValidatePeriod checks a month (1-12) and year (1970-2100) pair.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < 1970 || year > 2100 {
		return ErrInvalidYear
	}
	return nil
}
