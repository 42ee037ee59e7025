package services

import (
	"context"
	"errors"
	"testing"

	"sysfinance/internal/core"
)

func TestCreateInstallmentPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.txs.Create(ctx, f.userID, CreateTransactionInput{
		Amount:       cents(30000),
		Type:         core.Expense,
		CreditCardID: &f.card.ID,
		Installments: 3,
		Date:         core.NewDate(2024, 1, 15),
		Description:  "TV",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.InstallmentNumber != 1 || first.TotalInstallments != 3 {
		t.Errorf("returned installment %d/%d, want 1/3", first.InstallmentNumber, first.TotalInstallments)
	}

	rows, err := f.txs.List(ctx, f.userID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("stored %d rows, want 3", len(rows))
	}

	// Newest first.
	want := []struct {
		date, desc string
		cents      int64
	}{
		{"2024-03-15", "TV (3/3)", 10000},
		{"2024-02-15", "TV (2/3)", 10000},
		{"2024-01-15", "TV (1/3)", 10000},
	}
	for i, w := range want {
		r := rows[i]
		if r.Date.String() != w.date || r.Description != w.desc || r.Amount.Cents != w.cents {
			t.Errorf("row %d = %s %q %d, want %s %q %d", i, r.Date, r.Description, r.Amount.Cents, w.date, w.desc, w.cents)
		}
		if r.CreditCardID == nil || *r.CreditCardID != f.card.ID {
			t.Errorf("row %d lost its credit card", i)
		}
	}

	if bal := f.vaultBalance(t); bal != 10000 {
		t.Errorf("vault balance = %d, want 10000", bal)
	}
}

func TestInstallmentRemainderOnLast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.txs.Create(ctx, f.userID, CreateTransactionInput{
		Amount: cents(10000), Type: core.Expense, CreditCardID: &f.card.ID, Installments: 3, Date: core.NewDate(2024, 1, 31),
	}); err != nil {
		t.Fatal(err)
	}

	rows, _ := f.store.ListTransactions(ctx, ascending(f.userID))
	wantCents := []int64{3333, 3333, 3334}
	wantDates := []string{"2024-01-31", "2024-02-29", "2024-03-29"}
	var sum int64
	for i, r := range rows {
		sum += r.Amount.Cents
		if r.Amount.Cents != wantCents[i] {
			t.Errorf("installment %d = %d cents, want %d", i+1, r.Amount.Cents, wantCents[i])
		}
		if r.Date.String() != wantDates[i] {
			t.Errorf("installment %d date = %s, want %s", i+1, r.Date, wantDates[i])
		}
	}
	if sum != 10000 {
		t.Errorf("installments sum to %d, want 10000", sum)
	}
}

func TestSingleCardPurchaseIsOneOfOne(t *testing.T) {
	f := newFixture(t)
	tx, err := f.txs.Create(context.Background(), f.userID, CreateTransactionInput{
		Amount: cents(4500), Type: core.Expense, CreditCardID: &f.card.ID, Date: core.NewDate(2024, 5, 2), Description: "Dinner",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tx.InstallmentNumber != 1 || tx.TotalInstallments != 1 {
		t.Errorf("installment = %d/%d, want 1/1", tx.InstallmentNumber, tx.TotalInstallments)
	}
	if tx.Description != "Dinner" {
		t.Errorf("Description = %q, want unchanged", tx.Description)
	}
}

func TestInstallmentsTooSmall(t *testing.T) {
	f := newFixture(t)
	_, err := f.txs.Create(context.Background(), f.userID, CreateTransactionInput{
		Amount: cents(2), Type: core.Expense, CreditCardID: &f.card.ID, Installments: 3, Date: core.NewDate(2024, 5, 2),
	})
	if err == nil {
		t.Fatal("Create() error = nil, want invalid input")
	}
	rows, _ := f.txs.List(context.Background(), f.userID, 0, 0)
	if len(rows) != 0 {
		t.Errorf("stored %d rows after rejection", len(rows))
	}
}

func TestDeleteCardWithPurchases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.txs.Create(ctx, f.userID, CreateTransactionInput{
		Amount: cents(100), Type: core.Expense, CreditCardID: &f.card.ID, Date: core.NewDate(2024, 5, 2),
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.catalog.DeleteCreditCard(ctx, f.userID, f.card.ID); !errors.Is(err, ErrCardHasPurchases) {
		t.Errorf("DeleteCreditCard() error = %v, want %v", err, ErrCardHasPurchases)
	}
}
