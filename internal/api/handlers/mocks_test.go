package handlers

import (
	"context"
	"time"

	"github.com/maheshrc27/formpay/internal/models"
	"github.com/maheshrc27/formpay/internal/transfer"
)

type fakeWebhookService struct {
	action *models.EntryAction
	err    error
}

func (f *fakeWebhookService) ProcessEvent(ctx context.Context, body []byte, sigHeader string) (*models.EntryAction, error) {
	return f.action, f.err
}

type fakeChargeService struct {
	auth    *models.Authorization
	payment *models.Payment
}

func (f *fakeChargeService) Authorize(ctx context.Context, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken) *models.Authorization {
	return f.auth
}

func (f *fakeChargeService) Capture(ctx context.Context, auth *models.Authorization, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, cardType string) *models.Payment {
	return f.payment
}

type fakeSubscriptionService struct {
	auth      *models.Authorization
	cancelled bool
	cancelErr error
}

func (f *fakeSubscriptionService) Subscribe(ctx context.Context, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken) *models.Authorization {
	return f.auth
}

func (f *fakeSubscriptionService) ProcessSubscription(ctx context.Context, auth *models.Authorization, feed *models.Feed, entry *models.Entry) error {
	return nil
}

func (f *fakeSubscriptionService) Cancel(ctx context.Context, entry *models.Entry, feed *models.Feed) (bool, error) {
	return f.cancelled, f.cancelErr
}

func (f *fakeSubscriptionService) PlanID(feed *models.Feed, paymentAmount, trialDays int64, currencyCode string) string {
	return ""
}

type fakeEntryRepo struct {
	entries       map[int64]*models.Entry
	byTransaction map[string]int64
	applied       []*models.EntryAction
	nextID        int64
}

func newFakeEntryRepo(entries ...*models.Entry) *fakeEntryRepo {
	r := &fakeEntryRepo{
		entries:       make(map[int64]*models.Entry),
		byTransaction: make(map[string]int64),
		nextID:        100,
	}
	for _, entry := range entries {
		r.entries[entry.ID] = entry
		if entry.TransactionID != "" {
			r.byTransaction[entry.TransactionID] = entry.ID
		}
	}
	return r
}

func (r *fakeEntryRepo) GetByID(ctx context.Context, id int64) (*models.Entry, bool, error) {
	entry, ok := r.entries[id]
	return entry, ok, nil
}

func (r *fakeEntryRepo) Create(ctx context.Context, entry *models.Entry) (int64, error) {
	r.nextID++
	entry.ID = r.nextID
	r.entries[entry.ID] = entry
	return entry.ID, nil
}

func (r *fakeEntryRepo) FindIDByTransactionID(ctx context.Context, transactionID string) (int64, bool, error) {
	id, ok := r.byTransaction[transactionID]
	return id, ok, nil
}

func (r *fakeEntryRepo) UpdatePayment(ctx context.Context, entry *models.Entry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *fakeEntryRepo) UpdateMeta(ctx context.Context, entryID int64, key, value string) error {
	return nil
}

func (r *fakeEntryRepo) AddNote(ctx context.Context, entryID int64, note string) error {
	return nil
}

func (r *fakeEntryRepo) ApplyAction(ctx context.Context, action *models.EntryAction) error {
	r.applied = append(r.applied, action)
	return nil
}

func (r *fakeEntryRepo) ListStaleAuthorizations(ctx context.Context, olderThan time.Time) ([]*models.Entry, error) {
	return nil, nil
}

type fakeFeedRepo struct {
	feeds []*models.Feed
}

func (r *fakeFeedRepo) GetByID(ctx context.Context, id int64) (*models.Feed, bool, error) {
	for _, feed := range r.feeds {
		if feed.ID == id {
			return feed, true, nil
		}
	}
	return nil, false, nil
}

func (r *fakeFeedRepo) GetFeedsForForm(ctx context.Context, formID int64) ([]*models.Feed, error) {
	var out []*models.Feed
	for _, feed := range r.feeds {
		if feed.FormID == formID {
			out = append(out, feed)
		}
	}
	return out, nil
}

func (r *fakeFeedRepo) GetPaymentFeed(ctx context.Context, entry *models.Entry) (*models.Feed, bool, error) {
	for _, feed := range r.feeds {
		if feed.FormID == entry.FormID && feed.IsActive {
			return feed, true, nil
		}
	}
	return nil, false, nil
}
