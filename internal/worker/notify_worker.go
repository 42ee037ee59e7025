package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sysfinance/internal/amqp"
	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
	applog "sysfinance/internal/log"
)

// NotifyWorker turns ledger events into user notifications and raises a
// budget alert the first time an expense pushes a month over its budget.
type NotifyWorker struct {
	repo ledger.Repository
}

func NewNotifyWorker(repo ledger.Repository) *NotifyWorker {
	return &NotifyWorker{repo: repo}
}

// HandleEvent processes a single ledger event from AMQP
func (w *NotifyWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		applog.FieldEvent, ev.Type,
		applog.FieldUserID, ev.UserID,
		applog.FieldTxID, ev.TransactionID)

	n, ok := notificationFor(ev)
	if !ok {
		return nil
	}
	if err := w.repo.CreateNotification(ctx, &n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if ev.Type == amqp.TransactionCreated && ev.TxType == string(core.Expense) {
		if err := w.checkBudgets(ctx, ev); err != nil {
			return fmt.Errorf("check budgets: %w", err)
		}
	}
	return nil
}

func notificationFor(ev *amqp.LedgerEvent) (core.Notification, bool) {
	amount := core.Money{Cents: ev.AmountCents}.String()
	desc := strings.TrimSpace(ev.Description)
	if desc == "" {
		desc = "no description"
	}

	n := core.Notification{UserID: ev.UserID}
	switch ev.Type {
	case amqp.TransactionCreated:
		n.Title = "New " + ev.TxType
		n.Message = fmt.Sprintf("%s recorded: %s", amount, desc)
	case amqp.TransactionDeleted:
		n.Title = "Transaction removed"
		n.Message = fmt.Sprintf("%s %s deleted: %s", amount, ev.TxType, desc)
	case amqp.RecurringGenerated:
		if ev.Count == 0 {
			return core.Notification{}, false
		}
		n.Title = "Recurring transactions"
		n.Message = fmt.Sprintf("%d recurring transaction(s) generated this month", ev.Count)
	default:
		return core.Notification{}, false
	}
	return n, true
}

// checkBudgets alerts when the month's expenses in the transaction's
// category cross a budget that they were still under before this expense.
// Budgets without a category cover every expense of the month.
func (w *NotifyWorker) checkBudgets(ctx context.Context, ev *amqp.LedgerEvent) error {
	t, err := w.repo.GetTransaction(ctx, ev.UserID, ev.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before we got to it.
		return nil
	}
	if err != nil {
		return err
	}

	year, month := t.Date.Year(), t.Date.Month()
	budgets, err := w.repo.ListBudgets(ctx, ev.UserID, month, year)
	if err != nil || len(budgets) == 0 {
		return err
	}
	txs, err := w.repo.ListTransactions(ctx, ledger.TransactionFilter{UserID: ev.UserID, Month: month, Year: year})
	if err != nil {
		return err
	}

	for _, b := range budgets {
		if b.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *b.CategoryID) {
			continue
		}
		spent := spentIn(txs, b.CategoryID)
		before := spent - t.Amount.Cents
		if spent <= b.Amount.Cents || before > b.Amount.Cents {
			continue
		}

		n := core.Notification{
			UserID: ev.UserID,
			Title:  "Budget exceeded",
			Message: fmt.Sprintf("%s spent of a %s budget for %s",
				core.Money{Cents: spent}, b.Amount, core.MonthLabel(year, month)),
		}
		if err := w.repo.CreateNotification(ctx, &n); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Budget exceeded",
			applog.FieldUserID, ev.UserID,
			applog.FieldYear, year,
			applog.FieldMonth, month,
			applog.FieldAmountCents, spent)
	}
	return nil
}

func spentIn(txs []core.Transaction, categoryID *int64) int64 {
	var total int64
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		if categoryID != nil && (t.CategoryID == nil || *t.CategoryID != *categoryID) {
			continue
		}
		total += t.Amount.Cents
	}
	return total
}
