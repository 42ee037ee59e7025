package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sysfinance/internal/amqp"
	"sysfinance/internal/cache"
	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
	"sysfinance/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// failingStore runs units of work against a repository whose
// SetBankBalance always fails, after the other writes went through.
type failingStore struct {
	ledger.Store
}

var errInjected = errors.New("injected failure")

type failingRepo struct {
	ledger.Repository
}

func (failingRepo) SetBankBalance(context.Context, int64, core.Money) error { return errInjected }

func (failingRepo) ListRecurring(context.Context, int64, bool) ([]core.RecurringTransaction, error) {
	return nil, errInjected
}

func (s failingStore) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Repository) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		return fn(ctx, failingRepo{tx})
	})
}

type fixture struct {
	store     *memory.Store
	summaries *cache.SummaryCache
	pub       *recordingPublisher
	txs       *TransactionService
	catalog   *CatalogService
	agg       *Aggregator

	userID int64
	bank   core.Bank
	vault  core.Vault
	card   core.CreditCard
}

// newFixture creates a user owning a bank with one 100.00 vault and a
// credit card.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:     memory.New(memory.DefaultSystemCategories),
		summaries: cache.NewSummaryCache(16, time.Minute),
		pub:       &recordingPublisher{},
	}
	f.txs = NewTransactionService(f.store, f.summaries, f.pub)
	f.catalog = NewCatalogService(f.store, BalanceModeVault, f.summaries)
	f.agg = NewAggregator(f.store, f.summaries, nil)

	f.userID = mustUser(t, f.store, "owner@example.com")

	var err error
	if f.bank, err = f.catalog.CreateBank(ctx, f.userID, "Nubank", "#8A05BE"); err != nil {
		t.Fatal(err)
	}
	if f.vault, err = f.catalog.CreateVault(ctx, f.userID, VaultInput{BankID: f.bank.ID, Name: "Main", Balance: cents(10000)}); err != nil {
		t.Fatal(err)
	}
	if f.card, err = f.catalog.CreateCreditCard(ctx, f.userID, core.CreditCard{Name: "Visa", Limit: cents(500000), ClosingDay: 5, DueDay: 12}); err != nil {
		t.Fatal(err)
	}
	return f
}

func mustUser(t *testing.T, repo ledger.UserRepository, email string) int64 {
	t.Helper()
	u := core.User{Email: email, PasswordHash: "x"}
	if err := repo.CreateUser(context.Background(), &u); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

func (f *fixture) vaultBalance(t *testing.T) int64 {
	t.Helper()
	v, err := f.store.GetVault(context.Background(), f.userID, f.vault.ID)
	if err != nil {
		t.Fatal(err)
	}
	return v.Balance.Cents
}

// cachedBankBalance reads the stored bank row without re-deriving it.
func (f *fixture) cachedBankBalance(t *testing.T) int64 {
	t.Helper()
	b, err := f.store.GetBank(context.Background(), f.userID, f.bank.ID)
	if err != nil {
		t.Fatal(err)
	}
	return b.CurrentBalance.Cents
}

func (f *fixture) systemCategory(t *testing.T, name string) core.Category {
	t.Helper()
	cats, err := f.store.ListCategories(context.Background(), f.userID)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cats {
		if c.Name == name && c.IsSystem {
			return c
		}
	}
	t.Fatalf("system category %q not seeded", name)
	return core.Category{}
}

func ascending(userID int64) ledger.TransactionFilter {
	return ledger.TransactionFilter{UserID: userID, Ascending: true}
}

func cents(n int64) core.Money { return core.Money{Cents: n} }

func ptr[T any](v T) *T { return &v }
