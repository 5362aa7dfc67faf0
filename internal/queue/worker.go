package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandleReconcileChargeTask(ctx context.Context, task *asynq.Task) error {
	var payload ReconcileChargePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.ReconcileCharge(ctx, payload.EntryID, payload.TransactionID)
}

// ReconcileCharge fetches the remote state of a charge that never got past
// authorization locally and records it on the entry. The charge itself is
// never mutated here; the operator decides whether to capture or void it.
func (q *Queue) ReconcileCharge(ctx context.Context, entryID int64, transactionID string) error {
	charge, err := q.sc.GetCharge(ctx, transactionID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	state := "authorized"
	switch {
	case charge.Refunded:
		state = "refunded"
	case charge.Captured:
		state = "captured"
	case charge.Status == "failed":
		state = "failed"
	}

	if err := q.entries.UpdateMeta(ctx, entryID, "stripe_charge_state", state); err != nil {
		return err
	}

	slog.Info("charge reconciled", "entry_id", entryID, "transaction_id", transactionID, "state", state)
	return nil
}
