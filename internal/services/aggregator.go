package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"sysfinance/internal/cache"
	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
	applog "sysfinance/internal/log"
	"sysfinance/internal/sheets"
)

// MaxEvolutionMonths bounds the rolling evolution window.
const MaxEvolutionMonths = 24

var ErrExportNotConfigured = fmt.Errorf("%w: spreadsheet export is not configured", core.ErrConflict)

// Aggregator computes read-only monthly reports over a user's transactions.
type Aggregator struct {
	repo      ledger.Repository
	summaries *cache.SummaryCache
	exporter  sheets.RowExporter
}

// NewAggregator builds an aggregator. summaries and exporter may be nil.
func NewAggregator(repo ledger.Repository, summaries *cache.SummaryCache, exporter sheets.RowExporter) *Aggregator {
	return &Aggregator{repo: repo, summaries: summaries, exporter: exporter}
}

// ExportResult describes a spreadsheet export.
type ExportResult struct {
	Ref  string `json:"ref"`
	Rows int    `json:"rows"`
}

// MonthlySummary totals income and expense of one month and the signed net
// contribution of each category.
func (a *Aggregator) MonthlySummary(ctx context.Context, userID int64, month, year int) (core.DashboardSummary, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return core.DashboardSummary{}, err
	}
	if s, ok := a.summaries.Get(userID, year, month); ok {
		return s, nil
	}

	txs, err := a.monthTransactions(ctx, userID, month, year, false)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	names, err := a.categoryNames(ctx, userID)
	if err != nil {
		return core.DashboardSummary{}, err
	}

	summary := summarize(txs, names)
	summary.Month, summary.Year = month, year
	a.summaries.Set(userID, summary)
	return summary, nil
}

func summarize(txs []core.Transaction, names map[int64]string) core.DashboardSummary {
	var s core.DashboardSummary
	byCategory := make(map[string]int64)
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case core.Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
		byCategory[categoryLabel(t.CategoryID, names)] += t.Type.Signed(t.Amount).Cents
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpense)

	s.ByCategory = make([]core.CategoryAmount, 0, len(byCategory))
	for name, cents := range byCategory {
		s.ByCategory = append(s.ByCategory, core.CategoryAmount{Name: name, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool { return s.ByCategory[i].Name < s.ByCategory[j].Name })
	return s
}

// Evolution returns income and expense totals for the last months calendar
// months ending with the month of now, oldest first.
func (a *Aggregator) Evolution(ctx context.Context, userID int64, months int, now time.Time) ([]core.EvolutionPoint, error) {
	if months < 1 || months > MaxEvolutionMonths {
		return nil, fmt.Errorf("%w: months must be between 1 and %d", core.ErrInvalidInput, MaxEvolutionMonths)
	}

	today := core.DateOf(now)
	points := make([]core.EvolutionPoint, months)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < months; i++ {
		d := today.AddMonths(-(months - 1 - i))
		idx, year, month := i, d.Year(), d.Month()
		g.Go(func() error {
			txs, err := a.monthTransactions(gctx, userID, month, year, false)
			if err != nil {
				return err
			}
			s := summarize(txs, nil)
			points[idx] = core.EvolutionPoint{
				Label:   core.MonthLabel(year, month),
				Year:    year,
				Month:   month,
				Income:  s.TotalIncome,
				Expense: s.TotalExpense,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// ExportRows returns one row per transaction of the month, oldest first,
// with amounts formatted to two decimals.
func (a *Aggregator) ExportRows(ctx context.Context, userID int64, month, year int) ([]core.ExportRow, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	txs, err := a.monthTransactions(ctx, userID, month, year, true)
	if err != nil {
		return nil, err
	}
	names, err := a.categoryNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]core.ExportRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, core.ExportRow{
			Date:        t.Date.String(),
			Type:        string(t.Type),
			Amount:      t.Amount.String(),
			Category:    categoryLabel(t.CategoryID, names),
			Description: t.Description,
		})
	}
	return rows, nil
}

// ExportToSheet pushes the month's export rows to the configured spreadsheet.
func (a *Aggregator) ExportToSheet(ctx context.Context, userID int64, month, year int) (ExportResult, error) {
	if a.exporter == nil {
		return ExportResult{}, ErrExportNotConfigured
	}
	rows, err := a.ExportRows(ctx, userID, month, year)
	if err != nil {
		return ExportResult{}, err
	}
	ref, err := a.exporter.ExportRows(ctx, userID, year, month, rows)
	if err != nil {
		slog.ErrorContext(ctx, "Sheet export failed",
			applog.FieldUserID, userID,
			applog.FieldYear, year,
			applog.FieldMonth, month,
			applog.FieldError, err)
		return ExportResult{}, fmt.Errorf("export to sheet: %w", err)
	}
	return ExportResult{Ref: ref, Rows: len(rows)}, nil
}

func (a *Aggregator) monthTransactions(ctx context.Context, userID int64, month, year int, ascending bool) ([]core.Transaction, error) {
	txs, err := a.repo.ListTransactions(ctx, ledger.TransactionFilter{
		UserID:    userID,
		Month:     month,
		Year:      year,
		Ascending: ascending,
	})
	if err != nil {
		return nil, fmt.Errorf("load %04d-%02d transactions: %w", year, month, err)
	}
	return txs, nil
}

func (a *Aggregator) categoryNames(ctx context.Context, userID int64) (map[int64]string, error) {
	cats, err := a.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func categoryLabel(id *int64, names map[int64]string) string {
	if id == nil {
		return core.UncategorizedLabel
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return core.UncategorizedLabel
}
