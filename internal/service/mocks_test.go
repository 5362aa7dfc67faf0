package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	stripe "github.com/stripe/stripe-go/v74"

	"github.com/maheshrc27/formpay/internal/models"
)

// fakeClient implements stripeclient.Client with overridable behavior per
// call. Unset funcs return a zero value so tests only stub what they assert.
type fakeClient struct {
	createChargeFn  func(params *stripe.ChargeParams) (*stripe.Charge, error)
	getChargeFn     func(id string) (*stripe.Charge, error)
	updateChargeFn  func(id string, params *stripe.ChargeParams) (*stripe.Charge, error)
	captureChargeFn func(id string) (*stripe.Charge, error)

	createCustomerFn func(params *stripe.CustomerParams) (*stripe.Customer, error)
	getCustomerFn    func(id string) (*stripe.Customer, error)
	updateCustomerFn func(id string, params *stripe.CustomerParams) (*stripe.Customer, error)
	addInvoiceItemFn func(params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error)

	getPlanFn    func(id string) (*stripe.Plan, error)
	createPlanFn func(params *stripe.PlanParams) (*stripe.Plan, error)

	createSubscriptionFn func(params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	getSubscriptionFn    func(id string) (*stripe.Subscription, error)
	updateSubscriptionFn func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	cancelSubscriptionFn func(id string) (*stripe.Subscription, error)

	getEventFn       func(id string) (*stripe.Event, error)
	constructEventFn func(payload []byte, sigHeader, secret string) (stripe.Event, error)

	validateKeyFn func() error
}

func (f *fakeClient) CreateCharge(ctx context.Context, params *stripe.ChargeParams) (*stripe.Charge, error) {
	if f.createChargeFn != nil {
		return f.createChargeFn(params)
	}
	return &stripe.Charge{}, nil
}

func (f *fakeClient) GetCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	if f.getChargeFn != nil {
		return f.getChargeFn(id)
	}
	return &stripe.Charge{ID: id}, nil
}

func (f *fakeClient) UpdateCharge(ctx context.Context, id string, params *stripe.ChargeParams) (*stripe.Charge, error) {
	if f.updateChargeFn != nil {
		return f.updateChargeFn(id, params)
	}
	return &stripe.Charge{ID: id}, nil
}

func (f *fakeClient) CaptureCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	if f.captureChargeFn != nil {
		return f.captureChargeFn(id)
	}
	return &stripe.Charge{ID: id}, nil
}

func (f *fakeClient) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if f.createCustomerFn != nil {
		return f.createCustomerFn(params)
	}
	return &stripe.Customer{ID: "cus_new"}, nil
}

func (f *fakeClient) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	if f.getCustomerFn != nil {
		return f.getCustomerFn(id)
	}
	return &stripe.Customer{ID: id}, nil
}

func (f *fakeClient) UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if f.updateCustomerFn != nil {
		return f.updateCustomerFn(id, params)
	}
	return &stripe.Customer{ID: id}, nil
}

func (f *fakeClient) AddInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error) {
	if f.addInvoiceItemFn != nil {
		return f.addInvoiceItemFn(params)
	}
	return &stripe.InvoiceItem{}, nil
}

func (f *fakeClient) GetPlan(ctx context.Context, id string) (*stripe.Plan, error) {
	if f.getPlanFn != nil {
		return f.getPlanFn(id)
	}
	return &stripe.Plan{ID: id}, nil
}

func (f *fakeClient) CreatePlan(ctx context.Context, params *stripe.PlanParams) (*stripe.Plan, error) {
	if f.createPlanFn != nil {
		return f.createPlanFn(params)
	}
	return &stripe.Plan{ID: stripe.StringValue(params.ID)}, nil
}

func (f *fakeClient) CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if f.createSubscriptionFn != nil {
		return f.createSubscriptionFn(params)
	}
	return &stripe.Subscription{ID: "sub_new"}, nil
}

func (f *fakeClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if f.getSubscriptionFn != nil {
		return f.getSubscriptionFn(id)
	}
	return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusActive}, nil
}

func (f *fakeClient) UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if f.updateSubscriptionFn != nil {
		return f.updateSubscriptionFn(id, params)
	}
	return &stripe.Subscription{ID: id}, nil
}

func (f *fakeClient) CancelSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if f.cancelSubscriptionFn != nil {
		return f.cancelSubscriptionFn(id)
	}
	return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusCanceled}, nil
}

func (f *fakeClient) GetEvent(ctx context.Context, id string) (*stripe.Event, error) {
	if f.getEventFn != nil {
		return f.getEventFn(id)
	}
	return nil, errors.New("event not found")
}

func (f *fakeClient) ConstructEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	if f.constructEventFn != nil {
		return f.constructEventFn(payload, sigHeader, secret)
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

func (f *fakeClient) ValidateKey(ctx context.Context) error {
	if f.validateKeyFn != nil {
		return f.validateKeyFn()
	}
	return nil
}

// fakeEntryRepo resolves entries from in-memory maps keyed by entry id and
// transaction id.
type fakeEntryRepo struct {
	entries       map[int64]*models.Entry
	byTransaction map[string]int64
	applied       []*models.EntryAction
	metaUpdates   map[string]string
}

func newFakeEntryRepo(entries ...*models.Entry) *fakeEntryRepo {
	r := &fakeEntryRepo{
		entries:       make(map[int64]*models.Entry),
		byTransaction: make(map[string]int64),
		metaUpdates:   make(map[string]string),
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
	id := int64(len(r.entries) + 1)
	entry.ID = id
	r.entries[id] = entry
	return id, nil
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
	r.metaUpdates[key] = value
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
	feeds map[int64]*models.Feed
}

func newFakeFeedRepo(feeds ...*models.Feed) *fakeFeedRepo {
	r := &fakeFeedRepo{feeds: make(map[int64]*models.Feed)}
	for _, feed := range feeds {
		r.feeds[feed.ID] = feed
	}
	return r
}

func (r *fakeFeedRepo) GetByID(ctx context.Context, id int64) (*models.Feed, bool, error) {
	feed, ok := r.feeds[id]
	return feed, ok, nil
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
