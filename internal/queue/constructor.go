package queue

import (
	"github.com/maheshrc27/formpay/internal/repository"
	"github.com/maheshrc27/formpay/internal/stripeclient"
)

type Queue struct {
	entries repository.EntryRepository
	sc      stripeclient.Client
}

func NewQueue(entries repository.EntryRepository, sc stripeclient.Client) *Queue {
	return &Queue{
		entries: entries,
		sc:      sc,
	}
}

const TaskTypeReconcileCharge = "reconcile:charge"

type ReconcileChargePayload struct {
	EntryID       int64  `json:"entry_id"`
	TransactionID string `json:"transaction_id"`
}
