package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/formpay/internal/queue"
	"github.com/maheshrc27/formpay/internal/repository"
)

// staleAfter is how long a charge may sit authorized-but-uncaptured before
// the sweep asks for its remote state.
const staleAfter = 24 * time.Hour

type StaleAuthJob struct {
	er     repository.EntryRepository
	client *asynq.Client
}

func NewStaleAuthJob(er repository.EntryRepository, client *asynq.Client) *StaleAuthJob {
	return &StaleAuthJob{
		er:     er,
		client: client,
	}
}

// SweepAuthorizations enqueues a reconcile task for every entry stuck in the
// Authorized state. Capture failures leave charges dangling remotely; this
// surfaces their current state to the operator.
func (c *StaleAuthJob) SweepAuthorizations() {
	ctx := context.Background()

	entries, err := c.er.ListStaleAuthorizations(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, entry := range entries {
		if entry.TransactionID == "" {
			continue
		}
		payload := queue.ReconcileChargePayload{
			EntryID:       entry.ID,
			TransactionID: entry.TransactionID,
		}
		if err := queue.EnqueueReconcile(c.client, payload); err != nil {
			slog.Info(err.Error())
		}
	}

	if len(entries) > 0 {
		slog.Info("stale authorization sweep complete", "entries", len(entries))
	}
}
