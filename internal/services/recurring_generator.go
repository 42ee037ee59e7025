package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sysfinance/internal/amqp"
	"sysfinance/internal/cache"
	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
	applog "sysfinance/internal/log"
)

// RecurringBalanceMode selects how generated transactions move money.
type RecurringBalanceMode string

const (
	// BalanceModeVault applies the delta to the template's vault and
	// re-derives the bank. Templates without a vault move no money.
	BalanceModeVault RecurringBalanceMode = "vault"
	// BalanceModeBank adds the delta straight onto the cached bank balance.
	// The next derivation of that bank overwrites it.
	BalanceModeBank RecurringBalanceMode = "bank"
)

func (m RecurringBalanceMode) Valid() bool {
	return m == BalanceModeVault || m == BalanceModeBank
}

// GenerationResult reports one generator run.
type GenerationResult struct {
	Year         int                `json:"year"`
	Month        int                `json:"month"`
	Created      []core.Transaction `json:"created"`
	Skipped      int                `json:"skipped"`
	TemplatesRun int                `json:"templates"`
}

// RecurringGenerator materializes active recurring templates into at most
// one transaction per template and calendar month.
type RecurringGenerator struct {
	store     ledger.Store
	mode      RecurringBalanceMode
	summaries *cache.SummaryCache
	publisher EventPublisher
}

func NewRecurringGenerator(store ledger.Store, mode RecurringBalanceMode, summaries *cache.SummaryCache, publisher EventPublisher) *RecurringGenerator {
	if !mode.Valid() {
		mode = BalanceModeVault
	}
	return &RecurringGenerator{
		store:     store,
		mode:      mode,
		summaries: summaries,
		publisher: publisher,
	}
}

func (g *RecurringGenerator) Mode() RecurringBalanceMode { return g.mode }

// Generate stamps the month containing now for every active template of the
// user. All rows and balance effects commit together.
func (g *RecurringGenerator) Generate(ctx context.Context, userID int64, now time.Time) (GenerationResult, error) {
	year, month := now.Year(), int(now.Month())
	result := GenerationResult{Year: year, Month: month}

	err := g.store.InTx(ctx, func(ctx context.Context, tx ledger.Repository) error {
		templates, err := tx.ListRecurring(ctx, userID, true)
		if err != nil {
			return fmt.Errorf("list recurring templates: %w", err)
		}
		result.TemplatesRun = len(templates)

		for _, tmpl := range templates {
			exists, err := tx.RecurringOccurrenceExists(ctx, tmpl.ID, year, month)
			if err != nil {
				return err
			}
			if exists {
				result.Skipped++
				continue
			}

			t := occurrence(tmpl, year, month)
			if err := tx.CreateTransaction(ctx, &t); err != nil {
				if errors.Is(err, core.ErrConflict) {
					result.Skipped++
					continue
				}
				return fmt.Errorf("recurring %d: %w", tmpl.ID, err)
			}
			if err := g.applyBalance(ctx, tx, userID, t); err != nil {
				return fmt.Errorf("recurring %d: %w", tmpl.ID, err)
			}
			result.Created = append(result.Created, t)
		}
		return nil
	})
	if err != nil {
		return GenerationResult{Year: year, Month: month}, err
	}

	if len(result.Created) > 0 {
		g.summaries.Invalidate(userID, year, month)
		ev := amqp.NewLedgerEvent(amqp.RecurringGenerated, userID)
		ev.Count = len(result.Created)
		publishEvent(ctx, g.publisher, ev)
	}
	slog.InfoContext(ctx, "Recurring generation complete",
		applog.FieldUserID, userID,
		applog.FieldYear, year,
		applog.FieldMonth, month,
		"created", len(result.Created),
		"skipped", result.Skipped,
		"mode", g.mode)
	return result, nil
}

// GenerateSafely runs Generate and only logs failures, so callers such as
// login never see them.
func (g *RecurringGenerator) GenerateSafely(ctx context.Context, userID int64, now time.Time) GenerationResult {
	result, err := g.Generate(ctx, userID, now)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring generation failed",
			applog.FieldComponent, applog.ComponentRecurring,
			applog.FieldUserID, userID,
			applog.FieldError, err)
	}
	return result
}

// GenerateAll runs the generator for every registered user and returns the
// number of transactions created. One user's failure does not stop the sweep.
func (g *RecurringGenerator) GenerateAll(ctx context.Context, now time.Time) (int, error) {
	ids, err := g.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	created := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		created += len(g.GenerateSafely(ctx, id, now).Created)
	}
	return created, nil
}

func occurrence(tmpl core.RecurringTransaction, year, month int) core.Transaction {
	id := tmpl.ID
	return core.Transaction{
		UserID:         tmpl.UserID,
		Amount:         tmpl.Amount,
		Type:           tmpl.Type,
		CategoryID:     tmpl.CategoryID,
		BankID:         tmpl.BankID,
		VaultID:        tmpl.VaultID,
		CreditCardID:   tmpl.CreditCardID,
		Date:           tmpl.OccurrenceDate(year, month),
		Description:    core.AutoPrefix + tmpl.Description,
		RecurringID:    &id,
		RecurringYear:  year,
		RecurringMonth: month,
	}
}

func (g *RecurringGenerator) applyBalance(ctx context.Context, tx ledger.Repository, userID int64, t core.Transaction) error {
	delta := t.Type.Signed(t.Amount)

	switch g.mode {
	case BalanceModeBank:
		bankID := t.BankID
		if bankID == nil && t.VaultID != nil {
			v, err := tx.GetVault(ctx, userID, *t.VaultID)
			if err != nil {
				return err
			}
			bankID = &v.BankID
		}
		if bankID == nil {
			return nil
		}
		return tx.AddBankBalance(ctx, *bankID, delta)

	default:
		if t.VaultID == nil {
			return nil
		}
		v, err := tx.GetVault(ctx, userID, *t.VaultID)
		if err != nil {
			return err
		}
		return applyVaultDelta(ctx, tx, v, delta)
	}
}
