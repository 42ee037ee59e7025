// Package memory is an in-process ledger.Store used by tests and the
// "memory" data backend. A unit of work runs under an exclusive lock and a
// failed unit restores the snapshot taken when it started. Writes made
// outside a unit of work wait for it to finish, so a restore never discards
// them.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// DefaultSystemCategories mirrors the rows seeded by the SQLite migrations.
var DefaultSystemCategories = []core.Category{
	{Name: "Salary", Type: core.Income, Icon: "wallet"},
	{Name: "Investments", Type: core.Income, Icon: "trending-up"},
	{Name: "Food", Type: core.Expense, Icon: "utensils"},
	{Name: "Housing", Type: core.Expense, Icon: "home"},
	{Name: "Transport", Type: core.Expense, Icon: "car"},
}

type state struct {
	nextID        int64
	users         map[int64]core.User
	banks         map[int64]core.Bank
	vaults        map[int64]core.Vault
	categories    map[int64]core.Category
	cards         map[int64]core.CreditCard
	transactions  map[int64]core.Transaction
	recurring     map[int64]core.RecurringTransaction
	budgets       map[int64]core.Budget
	notifications map[int64]core.Notification
}

func newState() *state {
	return &state{
		users:         map[int64]core.User{},
		banks:         map[int64]core.Bank{},
		vaults:        map[int64]core.Vault{},
		categories:    map[int64]core.Category{},
		cards:         map[int64]core.CreditCard{},
		transactions:  map[int64]core.Transaction{},
		recurring:     map[int64]core.RecurringTransaction{},
		budgets:       map[int64]core.Budget{},
		notifications: map[int64]core.Notification{},
	}
}

func (s *state) clone() *state {
	return &state{
		nextID:        s.nextID,
		users:         cloneMap(s.users),
		banks:         cloneMap(s.banks),
		vaults:        cloneMap(s.vaults),
		categories:    cloneMap(s.categories),
		cards:         cloneMap(s.cards),
		transactions:  cloneMap(s.transactions),
		recurring:     cloneMap(s.recurring),
		budgets:       cloneMap(s.budgets),
		notifications: cloneMap(s.notifications),
	}
}

func cloneMap[V any](in map[int64]V) map[int64]V {
	out := make(map[int64]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type shared struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
	now  func() time.Time
}

// Store is safe for concurrent use. Inside InTx the unit of work receives a
// view of the same store that already holds txMu.
type Store struct {
	*shared
	inTx bool
}

// New returns a store seeded with the given system categories.
func New(system []core.Category) *Store {
	s := &Store{shared: &shared{data: newState(), now: time.Now}}
	for _, c := range system {
		c.IsSystem = true
		c.UserID = nil
		_ = s.CreateCategory(context.Background(), &c)
	}
	return s
}

// NewFromFiles seeds system categories from base/seed_categories.txt, one
// "<income|expense> <name>" pair per line. Missing or empty files fall back
// to DefaultSystemCategories.
func NewFromFiles(base string) *Store {
	var cats []core.Category
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		kind, name, ok := strings.Cut(line, " ")
		name = strings.TrimSpace(name)
		if !ok || name == "" || !core.TransactionType(kind).Valid() {
			continue
		}
		cats = append(cats, core.Category{Name: name, Type: core.TransactionType(kind)})
	}
	if len(cats) == 0 {
		cats = DefaultSystemCategories
	}
	return New(cats)
}

// InTx runs fn as one unit of work. Nested calls join the outer unit.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Repository) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &Store{shared: s.shared, inTx: true}); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

// lock takes the write lock, and txMu as well when called outside a unit of
// work. The returned func releases both.
func (s *Store) lock() func() {
	if !s.inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !s.inTx {
			s.txMu.Unlock()
		}
	}
}

func (s *Store) id() int64 {
	s.data.nextID++
	return s.data.nextID
}

// Users

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	defer s.lock()()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.data.users {
		if strings.EqualFold(existing.Email, email) {
			return core.ErrConflict
		}
	}
	u.ID = s.id()
	u.Email = email
	u.CreatedAt = s.now().UTC()
	s.data.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.data.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.data.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) ListUserIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.data.users))
	for id := range s.data.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Banks

func (s *Store) CreateBank(_ context.Context, b *core.Bank) error {
	defer s.lock()()
	b.ID = s.id()
	b.CreatedAt = s.now().UTC()
	s.data.banks[b.ID] = *b
	return nil
}

func (s *Store) GetBank(_ context.Context, userID, id int64) (core.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data.banks[id]
	if !ok || b.UserID != userID {
		return core.Bank{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBanks(_ context.Context, userID int64) ([]core.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.data.banks, func(b core.Bank) bool { return b.UserID == userID }), nil
}

func (s *Store) UpdateBank(_ context.Context, b core.Bank) error {
	defer s.lock()()
	cur, ok := s.data.banks[b.ID]
	if !ok || cur.UserID != b.UserID {
		return core.ErrNotFound
	}
	cur.Name, cur.IconColor = b.Name, b.IconColor
	s.data.banks[b.ID] = cur
	return nil
}

func (s *Store) DeleteBank(_ context.Context, userID, id int64) error {
	defer s.lock()()
	b, ok := s.data.banks[id]
	if !ok || b.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.data.banks, id)
	for tid, t := range s.data.transactions {
		if t.BankID != nil && *t.BankID == id {
			t.BankID = nil
			s.data.transactions[tid] = t
		}
	}
	for rid, r := range s.data.recurring {
		if r.BankID != nil && *r.BankID == id {
			r.BankID = nil
			s.data.recurring[rid] = r
		}
	}
	return nil
}

func (s *Store) SetBankBalance(_ context.Context, bankID int64, balance core.Money) error {
	defer s.lock()()
	b, ok := s.data.banks[bankID]
	if !ok {
		return core.ErrNotFound
	}
	b.CurrentBalance = balance
	s.data.banks[bankID] = b
	return nil
}

func (s *Store) AddBankBalance(_ context.Context, bankID int64, delta core.Money) error {
	defer s.lock()()
	b, ok := s.data.banks[bankID]
	if !ok {
		return core.ErrNotFound
	}
	b.CurrentBalance = b.CurrentBalance.Add(delta)
	s.data.banks[bankID] = b
	return nil
}

// Vaults

func (s *Store) CreateVault(_ context.Context, v *core.Vault) error {
	defer s.lock()()
	if _, ok := s.data.banks[v.BankID]; !ok {
		return core.ErrNotFound
	}
	v.ID = s.id()
	v.CreatedAt = s.now().UTC()
	s.data.vaults[v.ID] = *v
	return nil
}

func (s *Store) GetVault(_ context.Context, userID, id int64) (core.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data.vaults[id]
	if !ok || v.UserID != userID {
		return core.Vault{}, core.ErrNotFound
	}
	return v, nil
}

func (s *Store) ListVaults(_ context.Context, userID int64) ([]core.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.data.vaults, func(v core.Vault) bool { return v.UserID == userID }), nil
}

func (s *Store) UpdateVault(_ context.Context, v core.Vault) error {
	defer s.lock()()
	cur, ok := s.data.vaults[v.ID]
	if !ok || cur.UserID != v.UserID {
		return core.ErrNotFound
	}
	if _, ok := s.data.banks[v.BankID]; !ok {
		return core.ErrNotFound
	}
	cur.Name, cur.BankID, cur.Currency, cur.Balance = v.Name, v.BankID, v.Currency, v.Balance
	s.data.vaults[v.ID] = cur
	return nil
}

func (s *Store) DeleteVault(_ context.Context, userID, id int64) error {
	defer s.lock()()
	v, ok := s.data.vaults[id]
	if !ok || v.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.data.vaults, id)
	// Transactions and templates keep their row but lose the vault reference.
	for tid, t := range s.data.transactions {
		if t.VaultID != nil && *t.VaultID == id {
			t.VaultID = nil
			s.data.transactions[tid] = t
		}
	}
	for rid, r := range s.data.recurring {
		if r.VaultID != nil && *r.VaultID == id {
			r.VaultID = nil
			s.data.recurring[rid] = r
		}
	}
	return nil
}

func (s *Store) AddVaultBalance(_ context.Context, vaultID int64, delta core.Money) error {
	defer s.lock()()
	v, ok := s.data.vaults[vaultID]
	if !ok {
		return core.ErrNotFound
	}
	v.Balance = v.Balance.Add(delta)
	s.data.vaults[vaultID] = v
	return nil
}

func (s *Store) CountVaultsByBank(_ context.Context, bankID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.data.vaults {
		if v.BankID == bankID {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumVaultBalances(_ context.Context, bankID int64) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum core.Money
	for _, v := range s.data.vaults {
		if v.BankID == bankID {
			sum = sum.Add(v.Balance)
		}
	}
	return sum, nil
}

// Categories

func (s *Store) CreateCategory(_ context.Context, c *core.Category) error {
	defer s.lock()()
	c.ID = s.id()
	s.data.categories[c.ID] = *c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.data.categories, func(c core.Category) bool { return c.VisibleTo(userID) }), nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	defer s.lock()()
	cur, ok := s.data.categories[c.ID]
	if !ok {
		return core.ErrNotFound
	}
	cur.Name, cur.Type, cur.Icon = c.Name, c.Type, c.Icon
	s.data.categories[c.ID] = cur
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.data.categories[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.data.categories, id)
	for tid, t := range s.data.transactions {
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
			s.data.transactions[tid] = t
		}
	}
	for rid, r := range s.data.recurring {
		if r.CategoryID != nil && *r.CategoryID == id {
			r.CategoryID = nil
			s.data.recurring[rid] = r
		}
	}
	for bid, b := range s.data.budgets {
		if b.CategoryID != nil && *b.CategoryID == id {
			delete(s.data.budgets, bid)
		}
	}
	return nil
}

// Credit cards

func (s *Store) CreateCreditCard(_ context.Context, c *core.CreditCard) error {
	defer s.lock()()
	c.ID = s.id()
	c.CreatedAt = s.now().UTC()
	s.data.cards[c.ID] = *c
	return nil
}

func (s *Store) GetCreditCard(_ context.Context, userID, id int64) (core.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data.cards[id]
	if !ok || c.UserID != userID {
		return core.CreditCard{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCreditCards(_ context.Context, userID int64) ([]core.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.data.cards, func(c core.CreditCard) bool { return c.UserID == userID }), nil
}

func (s *Store) UpdateCreditCard(_ context.Context, c core.CreditCard) error {
	defer s.lock()()
	cur, ok := s.data.cards[c.ID]
	if !ok || cur.UserID != c.UserID {
		return core.ErrNotFound
	}
	c.CreatedAt = cur.CreatedAt
	s.data.cards[c.ID] = c
	return nil
}

func (s *Store) DeleteCreditCard(_ context.Context, userID, id int64) error {
	defer s.lock()()
	c, ok := s.data.cards[id]
	if !ok || c.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.data.cards, id)
	return nil
}

func (s *Store) CountTransactionsByCard(_ context.Context, cardID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.data.transactions {
		if t.CreditCardID != nil && *t.CreditCardID == cardID {
			n++
		}
	}
	return n, nil
}

// Transactions

func (s *Store) CreateTransaction(_ context.Context, t *core.Transaction) error {
	defer s.lock()()
	if t.RecurringID != nil {
		for _, existing := range s.data.transactions {
			if sameOccurrence(existing, *t.RecurringID, t.RecurringYear, t.RecurringMonth) {
				return core.ErrConflict
			}
		}
	}
	t.ID = s.id()
	t.CreatedAt = s.now().UTC()
	s.data.transactions[t.ID] = *t
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	defer s.lock()()
	t, ok := s.data.transactions[id]
	if !ok || t.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.data.transactions, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.data.transactions {
		if t.UserID != f.UserID {
			continue
		}
		if f.HasPeriod() && (t.Date.Year() != f.Year || t.Date.Month() != f.Month) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.Ascending {
			a, b = b, a
		}
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (s *Store) RecurringOccurrenceExists(_ context.Context, recurringID int64, year, month int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.data.transactions {
		if sameOccurrence(t, recurringID, year, month) {
			return true, nil
		}
	}
	return false, nil
}

func sameOccurrence(t core.Transaction, recurringID int64, year, month int) bool {
	return t.RecurringID != nil && *t.RecurringID == recurringID &&
		t.RecurringYear == year && t.RecurringMonth == month
}

// Recurring templates

func (s *Store) CreateRecurring(_ context.Context, r *core.RecurringTransaction) error {
	defer s.lock()()
	r.ID = s.id()
	r.CreatedAt = s.now().UTC()
	s.data.recurring[r.ID] = *r
	return nil
}

func (s *Store) GetRecurring(_ context.Context, userID, id int64) (core.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data.recurring[id]
	if !ok || r.UserID != userID {
		return core.RecurringTransaction{}, core.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRecurring(_ context.Context, userID int64, activeOnly bool) ([]core.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.data.recurring, func(r core.RecurringTransaction) bool {
		return r.UserID == userID && (!activeOnly || r.IsActive)
	}), nil
}

func (s *Store) UpdateRecurring(_ context.Context, r core.RecurringTransaction) error {
	defer s.lock()()
	cur, ok := s.data.recurring[r.ID]
	if !ok || cur.UserID != r.UserID {
		return core.ErrNotFound
	}
	r.CreatedAt = cur.CreatedAt
	s.data.recurring[r.ID] = r
	return nil
}

func (s *Store) DeleteRecurring(_ context.Context, userID, id int64) error {
	defer s.lock()()
	r, ok := s.data.recurring[id]
	if !ok || r.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.data.recurring, id)
	return nil
}

// Budgets

func (s *Store) CreateBudget(_ context.Context, b *core.Budget) error {
	defer s.lock()()
	b.ID = s.id()
	s.data.budgets[b.ID] = *b
	return nil
}

func (s *Store) ListBudgets(_ context.Context, userID int64, month, year int) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.data.budgets, func(b core.Budget) bool {
		return b.UserID == userID && b.Month == month && b.Year == year
	}), nil
}

// Notifications

func (s *Store) CreateNotification(_ context.Context, n *core.Notification) error {
	defer s.lock()()
	n.ID = s.id()
	n.CreatedAt = s.now().UTC()
	s.data.notifications[n.ID] = *n
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID int64, unreadOnly bool) ([]core.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.data.notifications, func(n core.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.Read)
	})
	// Newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, id int64) error {
	defer s.lock()()
	n, ok := s.data.notifications[id]
	if !ok || n.UserID != userID {
		return core.ErrNotFound
	}
	n.Read = true
	s.data.notifications[id] = n
	return nil
}

// collect returns the values matching keep ordered by id.
func collect[V any](in map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(in))
	for id, v := range in {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, in[id])
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
