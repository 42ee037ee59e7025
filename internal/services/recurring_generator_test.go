package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"sysfinance/internal/amqp"
	"sysfinance/internal/core"
)

func march2024() time.Time {
	return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func TestGenerateIsIdempotentPerMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := NewRecurringGenerator(f.store, BalanceModeVault, f.summaries, f.pub)

	tmpl, err := f.catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount:      cents(2000),
		Type:        core.Income,
		VaultID:     &f.vault.ID,
		DayOfMonth:  5,
		Description: "Salary",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.BankID == nil || *tmpl.BankID != f.bank.ID {
		t.Errorf("template did not inherit the vault bank: %v", tmpl.BankID)
	}

	first, err := gen.Generate(ctx, f.userID, march2024())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(first.Created) != 1 {
		t.Fatalf("Generate() created %d rows, want 1", len(first.Created))
	}
	got := first.Created[0]
	if got.Description != "[Auto] Salary" {
		t.Errorf("Description = %q, want %q", got.Description, "[Auto] Salary")
	}
	if got.Date.String() != "2024-03-05" {
		t.Errorf("Date = %s, want 2024-03-05", got.Date)
	}
	if got.RecurringID == nil || *got.RecurringID != tmpl.ID {
		t.Errorf("RecurringID = %v, want %d", got.RecurringID, tmpl.ID)
	}

	second, err := gen.Generate(ctx, f.userID, march2024().Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Created) != 0 || second.Skipped != 1 {
		t.Errorf("second run = %d created, %d skipped; want 0 and 1", len(second.Created), second.Skipped)
	}

	if bal := f.vaultBalance(t); bal != 12000 {
		t.Errorf("vault balance = %d, want 12000", bal)
	}
	if bal := f.cachedBankBalance(t); bal != 12000 {
		t.Errorf("bank balance = %d, want 12000", bal)
	}

	march, _ := f.txs.List(ctx, f.userID, 3, 2024)
	if len(march) != 1 {
		t.Errorf("March has %d transactions, want 1", len(march))
	}

	events := f.pub.types()
	if len(events) != 1 || events[0] != amqp.RecurringGenerated {
		t.Errorf("published events = %v, want one %s", events, amqp.RecurringGenerated)
	}
}

func TestGenerateNextMonthCreatesAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := NewRecurringGenerator(f.store, BalanceModeVault, f.summaries, nil)

	if _, err := f.catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount: cents(1500), Type: core.Expense, VaultID: &f.vault.ID, DayOfMonth: 1, Description: "Rent",
	}); err != nil {
		t.Fatal(err)
	}
	for _, now := range []time.Time{march2024(), march2024().AddDate(0, 1, 0)} {
		res, err := gen.Generate(ctx, f.userID, now)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Created) != 1 {
			t.Errorf("Generate(%s) created %d, want 1", now.Format("2006-01"), len(res.Created))
		}
	}
	if bal := f.vaultBalance(t); bal != 7000 {
		t.Errorf("vault balance = %d, want 7000", bal)
	}
}

func TestGenerateMissingDayFallsBackToFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := NewRecurringGenerator(f.store, BalanceModeVault, nil, nil)

	if _, err := f.catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount: cents(100), Type: core.Expense, VaultID: &f.vault.ID, DayOfMonth: 31, Description: "Gym",
	}); err != nil {
		t.Fatal(err)
	}

	res, err := gen.Generate(ctx, f.userID, time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 1 {
		t.Fatalf("created %d, want 1", len(res.Created))
	}
	if d := res.Created[0].Date.String(); d != "2024-02-01" {
		t.Errorf("Date = %s, want 2024-02-01", d)
	}
}

func TestGenerateSkipsInactiveTemplates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := NewRecurringGenerator(f.store, BalanceModeVault, nil, nil)

	tmpl, err := f.catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount: cents(100), Type: core.Expense, VaultID: &f.vault.ID, DayOfMonth: 3, Description: "Paused",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.catalog.UpdateRecurring(ctx, f.userID, tmpl.ID, RecurringUpdate{IsActive: ptr(false)}); err != nil {
		t.Fatal(err)
	}

	res, err := gen.Generate(ctx, f.userID, march2024())
	if err != nil {
		t.Fatal(err)
	}
	if res.TemplatesRun != 0 || len(res.Created) != 0 {
		t.Errorf("inactive template generated: %+v", res)
	}
}

func TestGenerateCardTemplateMovesNoMoney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := NewRecurringGenerator(f.store, BalanceModeVault, nil, nil)

	if _, err := f.catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount: cents(3990), Type: core.Expense, CreditCardID: &f.card.ID, DayOfMonth: 15, Description: "Streaming",
	}); err != nil {
		t.Fatal(err)
	}
	res, err := gen.Generate(ctx, f.userID, march2024())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 1 {
		t.Fatalf("created %d, want 1", len(res.Created))
	}
	if bal := f.vaultBalance(t); bal != 10000 {
		t.Errorf("vault balance = %d, want 10000", bal)
	}
}

func TestGenerateAllSweepsEveryUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := NewRecurringGenerator(f.store, BalanceModeVault, f.summaries, nil)
	mustUser(t, f.store, "idle@example.com")

	if _, err := f.catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount: cents(1500), Type: core.Expense, VaultID: &f.vault.ID, DayOfMonth: 1, Description: "Gym",
	}); err != nil {
		t.Fatal(err)
	}

	created, err := gen.GenerateAll(ctx, march2024())
	if err != nil {
		t.Fatalf("GenerateAll() error = %v", err)
	}
	if created != 1 {
		t.Errorf("GenerateAll() = %d, want 1", created)
	}
	if again, _ := gen.GenerateAll(ctx, march2024()); again != 0 {
		t.Errorf("second GenerateAll() = %d, want 0", again)
	}
	if bal := f.vaultBalance(t); bal != 8500 {
		t.Errorf("vault balance = %d, want 8500", bal)
	}
}

// A sweep running in another process has no handle on the API's cache, so
// an already cached month keeps its old totals until it is invalidated or
// its TTL expires.
func TestGenerateAllWithoutCacheLeavesCachedMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount: cents(2000), Type: core.Expense, VaultID: &f.vault.ID, DayOfMonth: 5, Description: "Internet",
	}); err != nil {
		t.Fatal(err)
	}
	before, err := f.agg.MonthlySummary(ctx, f.userID, 3, 2024)
	if err != nil {
		t.Fatal(err)
	}

	sweep := NewRecurringGenerator(f.store, BalanceModeVault, nil, nil)
	if created, err := sweep.GenerateAll(ctx, march2024()); err != nil || created != 1 {
		t.Fatalf("GenerateAll() = %d, %v; want 1, nil", created, err)
	}

	cached, _ := f.agg.MonthlySummary(ctx, f.userID, 3, 2024)
	if cached.TotalExpense != before.TotalExpense {
		t.Errorf("cached TotalExpense = %v, want %v until invalidated", cached.TotalExpense, before.TotalExpense)
	}

	f.summaries.Invalidate(f.userID, 2024, 3)
	fresh, err := f.agg.MonthlySummary(ctx, f.userID, 3, 2024)
	if err != nil {
		t.Fatal(err)
	}
	if want := before.TotalExpense.Add(cents(2000)); fresh.TotalExpense != want {
		t.Errorf("TotalExpense after invalidation = %v, want %v", fresh.TotalExpense, want)
	}
}

func TestGenerateAllStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewRecurringGenerator(f.store, BalanceModeVault, nil, nil)
	if _, err := gen.GenerateAll(ctx, march2024()); !errors.Is(err, context.Canceled) {
		t.Errorf("GenerateAll() error = %v, want context.Canceled", err)
	}
}

func TestBankModeAddsToCachedBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.store, BalanceModeBank, f.summaries)
	gen := NewRecurringGenerator(f.store, BalanceModeBank, f.summaries, nil)

	if _, err := catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount: cents(500), Type: core.Income, BankID: &f.bank.ID, DayOfMonth: 2, Description: "Cashback",
	}); err != nil {
		t.Fatalf("CreateRecurring() in bank mode error = %v", err)
	}

	if _, err := gen.Generate(ctx, f.userID, march2024()); err != nil {
		t.Fatal(err)
	}
	if bal := f.cachedBankBalance(t); bal != 10500 {
		t.Errorf("cached bank balance = %d, want 10500", bal)
	}
	if bal := f.vaultBalance(t); bal != 10000 {
		t.Errorf("vault balance = %d, want 10000", bal)
	}

	// Reading the bank derives it again from its vaults.
	b, err := catalog.GetBank(ctx, f.userID, f.bank.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.CurrentBalance.Cents != 10000 {
		t.Errorf("derived bank balance = %d, want 10000", b.CurrentBalance.Cents)
	}
}

func TestBankModeUsesVaultBank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := NewRecurringGenerator(f.store, BalanceModeBank, nil, nil)

	// Stored without a bank so the generator has to look it up via the vault.
	tmpl := core.RecurringTransaction{
		UserID: f.userID, Amount: cents(250), Type: core.Expense,
		VaultID: &f.vault.ID, DayOfMonth: 1, Description: "Fee", IsActive: true,
	}
	if err := f.store.CreateRecurring(ctx, &tmpl); err != nil {
		t.Fatal(err)
	}

	if _, err := gen.Generate(ctx, f.userID, march2024()); err != nil {
		t.Fatal(err)
	}
	if bal := f.cachedBankBalance(t); bal != 9750 {
		t.Errorf("cached bank balance = %d, want 9750", bal)
	}
	if bal := f.vaultBalance(t); bal != 10000 {
		t.Errorf("vault balance = %d, want 10000", bal)
	}
}

func TestVaultModeRejectsBankOnlyTemplate(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.CreateRecurring(context.Background(), f.userID, RecurringInput{
		Amount: cents(500), Type: core.Income, BankID: &f.bank.ID, DayOfMonth: 2, Description: "Cashback",
	})
	if !errors.Is(err, ErrTemplateNeedsVault) {
		t.Errorf("CreateRecurring() error = %v, want %v", err, ErrTemplateNeedsVault)
	}
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("error kind = %v, want invalid input", err)
	}
}

func TestGenerateRollsBackEveryTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.catalog.CreateRecurring(ctx, f.userID, RecurringInput{
		Amount: cents(100), Type: core.Income, VaultID: &f.vault.ID, DayOfMonth: 1, Description: "Interest",
	}); err != nil {
		t.Fatal(err)
	}

	gen := NewRecurringGenerator(failingStore{f.store}, BalanceModeVault, nil, nil)
	if _, err := gen.Generate(ctx, f.userID, march2024()); !errors.Is(err, errInjected) {
		t.Fatalf("Generate() error = %v, want injected failure", err)
	}

	res := gen.GenerateSafely(ctx, f.userID, march2024())
	if len(res.Created) != 0 || res.Year != 2024 || res.Month != 3 {
		t.Errorf("GenerateSafely() = %+v", res)
	}
	if bal := f.vaultBalance(t); bal != 10000 {
		t.Errorf("vault balance = %d, want 10000", bal)
	}
}

func TestRecurringBalanceModeValid(t *testing.T) {
	tests := []struct {
		mode RecurringBalanceMode
		want bool
	}{
		{BalanceModeVault, true},
		{BalanceModeBank, true},
		{"", false},
		{"ledger", false},
	}
	for _, tt := range tests {
		if got := tt.mode.Valid(); got != tt.want {
			t.Errorf("RecurringBalanceMode(%q).Valid() = %v, want %v", tt.mode, got, tt.want)
		}
	}

	if got := NewRecurringGenerator(nil, "bogus", nil, nil).Mode(); got != BalanceModeVault {
		t.Errorf("fallback mode = %q, want %q", got, BalanceModeVault)
	}
}
