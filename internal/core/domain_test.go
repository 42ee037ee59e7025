package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero, got %v", err)
	}
}

func TestTransactionTypeSigned(t *testing.T) {
	amount := Money{Cents: 500}
	if got := Income.Signed(amount); got.Cents != 500 {
		t.Errorf("Income.Signed() = %d, want 500", got.Cents)
	}
	if got := Expense.Signed(amount); got.Cents != -500 {
		t.Errorf("Expense.Signed() = %d, want -500", got.Cents)
	}
	if TransactionType("transfer").Valid() {
		t.Error("transfer should not be a valid type")
	}
}

func TestCategoryVisibleTo(t *testing.T) {
	owner := int64(7)
	tests := []struct {
		name     string
		category Category
		userID   int64
		visible  bool
		owned    bool
	}{
		{"system category", Category{IsSystem: true}, 1, true, false},
		{"own category", Category{UserID: &owner}, 7, true, true},
		{"foreign category", Category{UserID: &owner}, 8, false, false},
		{"orphan category", Category{}, 7, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.category.VisibleTo(tt.userID); got != tt.visible {
				t.Errorf("VisibleTo() = %v, want %v", got, tt.visible)
			}
			if got := tt.category.OwnedBy(tt.userID); got != tt.owned {
				t.Errorf("OwnedBy() = %v, want %v", got, tt.owned)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount: Money{Cents: 100},
		Type:   Expense,
		Date:   NewDate(2024, 1, 15),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Amount: Money{Cents: 100}, Type: "other", Date: NewDate(2024, 1, 1)},
		{Amount: Money{Cents: 0}, Type: Income, Date: NewDate(2024, 1, 1)},
		{Amount: Money{Cents: 100}, Type: Income},
		{Amount: Money{Cents: 100}, Type: Expense, Date: NewDate(2024, 1, 1), InstallmentNumber: 1},
		{Amount: Money{Cents: 100}, Type: Expense, Date: NewDate(2024, 1, 1), InstallmentNumber: 4, TotalInstallments: 3},
	}
	for i, tx := range bads {
		if err := tx.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected invalid input, got %v", i, err)
		}
	}
}

func TestRecurringValidate(t *testing.T) {
	vault, card := int64(1), int64(2)
	tests := []struct {
		name string
		r    RecurringTransaction
		ok   bool
	}{
		{"valid", RecurringTransaction{Amount: Money{Cents: 1000}, Type: Expense, DayOfMonth: 5, Description: "Rent"}, true},
		{"day zero", RecurringTransaction{Amount: Money{Cents: 1000}, Type: Expense, DayOfMonth: 0, Description: "Rent"}, false},
		{"day 32", RecurringTransaction{Amount: Money{Cents: 1000}, Type: Expense, DayOfMonth: 32, Description: "Rent"}, false},
		{"empty description", RecurringTransaction{Amount: Money{Cents: 1000}, Type: Expense, DayOfMonth: 5, Description: "  "}, false},
		{"vault and card", RecurringTransaction{Amount: Money{Cents: 1000}, Type: Expense, DayOfMonth: 5, Description: "x", VaultID: &vault, CreditCardID: &card}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestOccurrenceDate(t *testing.T) {
	tests := []struct {
		day         int
		year, month int
		want        string
	}{
		{15, 2024, 3, "2024-03-15"},
		{31, 2024, 3, "2024-03-31"},
		{31, 2024, 4, "2024-04-01"},
		{30, 2023, 2, "2023-02-01"},
		{29, 2024, 2, "2024-02-29"},
	}
	for _, tt := range tests {
		r := RecurringTransaction{DayOfMonth: tt.day}
		if got := r.OccurrenceDate(tt.year, tt.month).String(); got != tt.want {
			t.Errorf("OccurrenceDate(%d, %d) with day %d = %s, want %s", tt.year, tt.month, tt.day, got, tt.want)
		}
	}
}

func TestCreditCardValidate(t *testing.T) {
	good := CreditCard{Name: "Visa", Limit: Money{Cents: 500000}, ClosingDay: 5, DueDay: 15}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.DueDay = 32
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for due day 32")
	}
}

func TestValidatePeriod(t *testing.T) {
	if err := ValidatePeriod(3, 2024); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidatePeriod(13, 2024); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid month, got %v", err)
	}
	if err := ValidatePeriod(1, 1969); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid year, got %v", err)
	}
}
