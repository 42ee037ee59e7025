package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
)

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	bank := core.Bank{UserID: 1, Name: "Nubank"}
	if err := s.CreateBank(ctx, &bank); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		if err := tx.SetBankBalance(ctx, bank.ID, core.Money{Cents: 999}); err != nil {
			return err
		}
		v := core.Vault{UserID: 1, BankID: bank.ID, Name: "Reserve"}
		if err := tx.CreateVault(ctx, &v); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	got, _ := s.GetBank(ctx, 1, bank.ID)
	if got.CurrentBalance.Cents != 0 {
		t.Errorf("balance after rollback = %d, want 0", got.CurrentBalance.Cents)
	}
	vaults, _ := s.ListVaults(ctx, 1)
	if len(vaults) != 0 {
		t.Errorf("vaults after rollback = %d, want 0", len(vaults))
	}
}

func TestWriteOutsideTxSurvivesRollback(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("boom")
	txDone := make(chan error, 1)
	go func() {
		txDone <- s.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
			b := core.Bank{UserID: 1, Name: "Discarded"}
			if err := tx.CreateBank(ctx, &b); err != nil {
				return err
			}
			close(started)
			<-release
			return boom
		})
	}()
	<-started

	outside := make(chan error, 1)
	go func() {
		b := core.Bank{UserID: 1, Name: "Kept"}
		outside <- s.CreateBank(ctx, &b)
	}()
	// Give the outside write a chance to run while the unit is still open.
	time.Sleep(20 * time.Millisecond)
	close(release)

	if err := <-txDone; !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}
	if err := <-outside; err != nil {
		t.Fatalf("CreateBank() error = %v", err)
	}

	banks, _ := s.ListBanks(ctx, 1)
	if len(banks) != 1 || banks[0].Name != "Kept" {
		t.Errorf("banks = %+v, want only Kept", banks)
	}
}

func TestNestedInTxJoinsOuterUnit(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		return tx.(*Store).InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
			b := core.Bank{UserID: 1, Name: "Inner"}
			if err := tx.CreateBank(ctx, &b); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}
	if banks, _ := s.ListBanks(ctx, 1); len(banks) != 0 {
		t.Errorf("banks after rollback = %d, want 0", len(banks))
	}
}

func TestRecurringOccurrenceUnique(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	rid := int64(42)
	first := core.Transaction{UserID: 1, Amount: core.Money{Cents: 100}, Type: core.Expense,
		Date: core.NewDate(2024, 3, 5), RecurringID: &rid, RecurringYear: 2024, RecurringMonth: 3}
	if err := s.CreateTransaction(ctx, &first); err != nil {
		t.Fatal(err)
	}
	dup := first
	dup.ID = 0
	if err := s.CreateTransaction(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate occurrence error = %v, want conflict", err)
	}
	next := first
	next.RecurringMonth = 4
	if err := s.CreateTransaction(ctx, &next); err != nil {
		t.Fatalf("next month occurrence error = %v", err)
	}

	exists, _ := s.RecurringOccurrenceExists(ctx, rid, 2024, 3)
	if !exists {
		t.Error("RecurringOccurrenceExists(2024-03) = false")
	}
	exists, _ = s.RecurringOccurrenceExists(ctx, rid, 2024, 5)
	if exists {
		t.Error("RecurringOccurrenceExists(2024-05) = true")
	}
}

func TestListTransactionsOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	dates := []core.Date{core.NewDate(2024, 3, 10), core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 10), core.NewDate(2024, 4, 2)}
	for _, d := range dates {
		tx := core.Transaction{UserID: 1, Amount: core.Money{Cents: 100}, Type: core.Income, Date: d}
		if err := s.CreateTransaction(ctx, &tx); err != nil {
			t.Fatal(err)
		}
	}
	other := core.Transaction{UserID: 2, Amount: core.Money{Cents: 100}, Type: core.Income, Date: core.NewDate(2024, 3, 3)}
	_ = s.CreateTransaction(ctx, &other)

	all, _ := s.ListTransactions(ctx, ledger.TransactionFilter{UserID: 1})
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	if all[0].Date.String() != "2024-04-02" {
		t.Errorf("first = %s, want newest", all[0].Date)
	}
	if !(all[1].Date.Equal(all[2].Date.Time) && all[1].ID > all[2].ID) {
		t.Errorf("same-day rows not ordered by id desc: %d, %d", all[1].ID, all[2].ID)
	}

	march, _ := s.ListTransactions(ctx, ledger.TransactionFilter{UserID: 1, Month: 3, Year: 2024, Ascending: true})
	if len(march) != 3 {
		t.Fatalf("march len = %d, want 3", len(march))
	}
	if march[0].Date.String() != "2024-03-01" || march[1].ID > march[2].ID {
		t.Errorf("ascending order broken: %+v", march)
	}

	monthOnly, _ := s.ListTransactions(ctx, ledger.TransactionFilter{UserID: 1, Month: 3})
	if len(monthOnly) != 4 {
		t.Errorf("month without year should not filter, got %d rows", len(monthOnly))
	}
}

func TestCategoryVisibility(t *testing.T) {
	ctx := context.Background()
	s := New(DefaultSystemCategories)
	owner := int64(1)
	mine := core.Category{UserID: &owner, Name: "Pets", Type: core.Expense}
	if err := s.CreateCategory(ctx, &mine); err != nil {
		t.Fatal(err)
	}

	forOwner, _ := s.ListCategories(ctx, 1)
	forOther, _ := s.ListCategories(ctx, 2)
	if len(forOwner) != len(DefaultSystemCategories)+1 {
		t.Errorf("owner sees %d categories", len(forOwner))
	}
	if len(forOther) != len(DefaultSystemCategories) {
		t.Errorf("other user sees %d categories", len(forOther))
	}
	for _, c := range forOther {
		if !c.IsSystem {
			t.Errorf("other user sees private category %q", c.Name)
		}
	}
}

func TestNewFromFilesSeedsCategories(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background(), 1)
	if len(cats) != len(DefaultSystemCategories) {
		t.Fatalf("expected defaults when file missing, got %d", len(cats))
	}

	content := "# kind name\nincome Bonus\nexpense Gym\nexpense Gym\ntransfer Bad\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background(), 1)
	if len(cats) != 2 || cats[0].Name != "Bonus" || cats[1].Type != core.Expense {
		t.Fatalf("unexpected seeded categories: %+v", cats)
	}
	if !cats[0].IsSystem {
		t.Error("seeded categories must be system categories")
	}
}

func TestOwnershipScopedReads(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	card := core.CreditCard{UserID: 1, Name: "Visa", ClosingDay: 1, DueDay: 10}
	_ = s.CreateCreditCard(ctx, &card)

	if _, err := s.GetCreditCard(ctx, 2, card.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign card read error = %v, want not found", err)
	}
	if err := s.DeleteCreditCard(ctx, 2, card.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign card delete error = %v, want not found", err)
	}
}
