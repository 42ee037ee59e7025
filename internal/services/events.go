package services

import (
	"context"
	"log/slog"

	"sysfinance/internal/amqp"
	"sysfinance/internal/core"
	applog "sysfinance/internal/log"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// publishEvent is fire and forget: the ledger write already committed, so a
// broker failure is logged and never returned.
func publishEvent(ctx context.Context, pub EventPublisher, ev *amqp.LedgerEvent) {
	if pub == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event",
			applog.FieldEvent, ev.Type)
		return
	}
	if err := pub.PublishEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEvent, ev.Type,
			applog.FieldUserID, ev.UserID,
			applog.FieldError, err)
	}
}

func transactionEvent(t amqp.EventType, tx core.Transaction) *amqp.LedgerEvent {
	ev := amqp.NewLedgerEvent(t, tx.UserID)
	ev.TransactionID = tx.ID
	ev.TxType = string(tx.Type)
	ev.AmountCents = tx.Amount.Cents
	ev.Description = tx.Description
	return ev
}
