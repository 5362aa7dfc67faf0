package service

import (
	"context"
	"testing"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/formpay/configs"
	"github.com/maheshrc27/formpay/internal/hooks"
	"github.com/maheshrc27/formpay/internal/models"
	"github.com/maheshrc27/formpay/internal/stripeclient"
	"github.com/maheshrc27/formpay/internal/transfer"
)

func newSubscriptionService(sc stripeclient.Client, registry *hooks.Registry) SubscriptionService {
	cfg := config.Config{DefaultCurrency: "USD"}
	fields := NewFieldService(registry)
	customers := NewCustomerResolver(sc, registry)
	return NewSubscriptionService(cfg, sc, fields, customers, newFakeEntryRepo(), registry)
}

func TestPlanID(t *testing.T) {
	s := newSubscriptionService(&fakeClient{}, hooks.NewRegistry())

	feed := &models.Feed{
		ID: 4,
		Meta: models.FeedMeta{
			FeedName:           "Gold Plan!",
			BillingCycleUnit:   "month",
			BillingCycleLength: 1,
		},
	}

	tests := []struct {
		name     string
		trial    int64
		amount   int64
		currency string
		want     string
	}{
		{"site currency omitted", 0, 1999, "USD", "goldplan_4_1month_1999"},
		{"trial included", 14, 1999, "USD", "goldplan_4_1month_trial14days_1999"},
		{"foreign currency appended", 0, 1999, "EUR", "goldplan_4_1month_1999_EUR"},
		{"trial and currency", 7, 500, "GBP", "goldplan_4_1month_trial7days_500_GBP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.PlanID(feed, tt.amount, tt.trial, tt.currency)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPlanID_SanitizesName(t *testing.T) {
	s := newSubscriptionService(&fakeClient{}, hooks.NewRegistry())

	feed := &models.Feed{
		ID: 9,
		Meta: models.FeedMeta{
			FeedName:           "My Feed #1 (2024)",
			BillingCycleUnit:   "year",
			BillingCycleLength: 1,
		},
	}

	require.Equal(t, "myfeed12024_9_1year_100", s.PlanID(feed, 100, 0, "usd"))
}

func subscriptionFeed() *models.Feed {
	return &models.Feed{
		ID:     4,
		FormID: 2,
		Meta: models.FeedMeta{
			FeedName:           "Gold Plan",
			TransactionType:    models.TransactionTypeSubscription,
			BillingCycleUnit:   "month",
			BillingCycleLength: 1,
		},
	}
}

func TestSubscribe_CreatesMissingPlan(t *testing.T) {
	var createdPlan *stripe.PlanParams
	sc := &fakeClient{
		getPlanFn: func(id string) (*stripe.Plan, error) {
			return nil, &stripeclient.RemoteError{Kind: stripeclient.KindNotFound, Message: "no such plan"}
		},
		createPlanFn: func(params *stripe.PlanParams) (*stripe.Plan, error) {
			createdPlan = params
			return &stripe.Plan{ID: stripe.StringValue(params.ID)}, nil
		},
		createSubscriptionFn: func(params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			return &stripe.Subscription{ID: "sub_1"}, nil
		},
	}

	s := newSubscriptionService(sc, hooks.NewRegistry())

	entry := &models.Entry{ID: 1, FormID: 2, Currency: "USD", Fields: map[string]string{}}
	data := &models.SubmissionData{PaymentAmount: 1999}
	token := &transfer.PaymentToken{ID: "tok_visa"}

	auth := s.Subscribe(context.Background(), subscriptionFeed(), data, entry, token)

	require.True(t, auth.IsAuthorized, auth.ErrorMessage)
	require.NotNil(t, auth.Subscription)
	require.Equal(t, "sub_1", auth.Subscription.SubscriptionID)
	require.Equal(t, int64(1999), auth.Subscription.Amount)

	require.NotNil(t, createdPlan)
	require.Equal(t, "goldplan_4_1month_1999", stripe.StringValue(createdPlan.ID))
	require.Equal(t, int64(1999), stripe.Int64Value(createdPlan.Amount))
	require.Equal(t, "usd", stripe.StringValue(createdPlan.Currency))
}

func TestSubscribe_ExistingPlanReused(t *testing.T) {
	planCreated := false
	sc := &fakeClient{
		getPlanFn: func(id string) (*stripe.Plan, error) {
			return &stripe.Plan{ID: id}, nil
		},
		createPlanFn: func(params *stripe.PlanParams) (*stripe.Plan, error) {
			planCreated = true
			return &stripe.Plan{}, nil
		},
	}

	s := newSubscriptionService(sc, hooks.NewRegistry())

	entry := &models.Entry{ID: 1, FormID: 2, Currency: "USD", Fields: map[string]string{}}
	auth := s.Subscribe(context.Background(), subscriptionFeed(), &models.SubmissionData{PaymentAmount: 1999}, entry, &transfer.PaymentToken{ID: "tok_visa"})

	require.True(t, auth.IsAuthorized)
	require.False(t, planCreated)
}

func TestSubscribe_PlanLookupFailure(t *testing.T) {
	sc := &fakeClient{
		getPlanFn: func(id string) (*stripe.Plan, error) {
			return nil, &stripeclient.RemoteError{Kind: stripeclient.KindTransient, Message: "connection reset"}
		},
	}

	s := newSubscriptionService(sc, hooks.NewRegistry())

	entry := &models.Entry{ID: 1, FormID: 2, Currency: "USD", Fields: map[string]string{}}
	auth := s.Subscribe(context.Background(), subscriptionFeed(), &models.SubmissionData{PaymentAmount: 1999}, entry, &transfer.PaymentToken{ID: "tok_visa"})

	require.False(t, auth.IsAuthorized)
	require.Equal(t, "connection reset", auth.ErrorMessage)
}

func TestSubscribe_NewCustomerSetupFeeAsBalance(t *testing.T) {
	var createdCustomer *stripe.CustomerParams
	invoiceItemAdded := false
	sc := &fakeClient{
		createCustomerFn: func(params *stripe.CustomerParams) (*stripe.Customer, error) {
			createdCustomer = params
			return &stripe.Customer{ID: "cus_1"}, nil
		},
		addInvoiceItemFn: func(params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error) {
			invoiceItemAdded = true
			return &stripe.InvoiceItem{}, nil
		},
	}

	s := newSubscriptionService(sc, hooks.NewRegistry())

	entry := &models.Entry{ID: 1, FormID: 2, Currency: "USD", Fields: map[string]string{}}
	data := &models.SubmissionData{PaymentAmount: 1999, SetupFee: 500}
	auth := s.Subscribe(context.Background(), subscriptionFeed(), data, entry, &transfer.PaymentToken{ID: "tok_visa"})

	require.True(t, auth.IsAuthorized, auth.ErrorMessage)
	require.NotNil(t, createdCustomer)
	require.Equal(t, "tok_visa", stripe.StringValue(createdCustomer.Source))
	require.Equal(t, int64(500), stripe.Int64Value(createdCustomer.Balance))
	require.False(t, invoiceItemAdded)
}

func TestSubscribe_ExistingCustomerSetupFeeAsInvoiceItem(t *testing.T) {
	registry := hooks.NewRegistry()
	hooks.RegisterFilter(registry, hooks.CustomerID, func(args *CustomerIDArgs) *CustomerIDArgs {
		args.CustomerID = "cus_existing"
		return args
	})

	var invoiceItem *stripe.InvoiceItemParams
	var attachedSource string
	customerCreated := false
	sc := &fakeClient{
		createCustomerFn: func(params *stripe.CustomerParams) (*stripe.Customer, error) {
			customerCreated = true
			return &stripe.Customer{ID: "cus_new"}, nil
		},
		updateCustomerFn: func(id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
			attachedSource = stripe.StringValue(params.Source)
			return &stripe.Customer{ID: id}, nil
		},
		addInvoiceItemFn: func(params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error) {
			invoiceItem = params
			return &stripe.InvoiceItem{}, nil
		},
	}

	s := newSubscriptionService(sc, registry)

	entry := &models.Entry{ID: 1, FormID: 2, Currency: "USD", Fields: map[string]string{}}
	data := &models.SubmissionData{PaymentAmount: 1999, SetupFee: 500}
	auth := s.Subscribe(context.Background(), subscriptionFeed(), data, entry, &transfer.PaymentToken{ID: "tok_visa"})

	require.True(t, auth.IsAuthorized, auth.ErrorMessage)
	require.False(t, customerCreated)
	require.Equal(t, "tok_visa", attachedSource)
	require.NotNil(t, invoiceItem)
	require.Equal(t, "cus_existing", stripe.StringValue(invoiceItem.Customer))
	require.Equal(t, int64(500), stripe.Int64Value(invoiceItem.Amount))
	require.Equal(t, "cus_existing", auth.Subscription.CustomerID)
}

func TestSubscribe_TokenError(t *testing.T) {
	called := false
	sc := &fakeClient{
		getPlanFn: func(id string) (*stripe.Plan, error) {
			called = true
			return nil, nil
		},
	}

	s := newSubscriptionService(sc, hooks.NewRegistry())

	entry := &models.Entry{ID: 1, FormID: 2, Currency: "USD"}
	token := &transfer.PaymentToken{Error: &transfer.PaymentTokenError{Message: "Your card was declined."}}
	auth := s.Subscribe(context.Background(), subscriptionFeed(), &models.SubmissionData{}, entry, token)

	require.False(t, auth.IsAuthorized)
	require.Equal(t, "Your card was declined.", auth.ErrorMessage)
	require.False(t, called)
}

func TestSubscribe_TrialSetsTrialFromPlan(t *testing.T) {
	var subscriptionParams *stripe.SubscriptionParams
	sc := &fakeClient{
		createSubscriptionFn: func(params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			subscriptionParams = params
			return &stripe.Subscription{ID: "sub_1"}, nil
		},
	}

	s := newSubscriptionService(sc, hooks.NewRegistry())

	feed := subscriptionFeed()
	feed.Meta.TrialEnabled = true

	entry := &models.Entry{ID: 1, FormID: 2, Currency: "USD", Fields: map[string]string{}}
	data := &models.SubmissionData{PaymentAmount: 1999, Trial: 14}
	auth := s.Subscribe(context.Background(), feed, data, entry, &transfer.PaymentToken{ID: "tok_visa"})

	require.True(t, auth.IsAuthorized, auth.ErrorMessage)
	require.NotNil(t, subscriptionParams)
	require.True(t, stripe.BoolValue(subscriptionParams.TrialFromPlan))
}

func TestCancel(t *testing.T) {
	entry := &models.Entry{ID: 1, FormID: 2, TransactionID: "sub_1"}
	feed := subscriptionFeed()

	t.Run("cancels active subscription", func(t *testing.T) {
		cancelled := ""
		sc := &fakeClient{
			getSubscriptionFn: func(id string) (*stripe.Subscription, error) {
				return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusActive}, nil
			},
			cancelSubscriptionFn: func(id string) (*stripe.Subscription, error) {
				cancelled = id
				return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusCanceled}, nil
			},
		}

		s := newSubscriptionService(sc, hooks.NewRegistry())
		ok, err := s.Cancel(context.Background(), entry, feed)

		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "sub_1", cancelled)
	})

	t.Run("already cancelled is success", func(t *testing.T) {
		cancelCalled := false
		sc := &fakeClient{
			getSubscriptionFn: func(id string) (*stripe.Subscription, error) {
				return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusCanceled}, nil
			},
			cancelSubscriptionFn: func(id string) (*stripe.Subscription, error) {
				cancelCalled = true
				return nil, nil
			},
		}

		s := newSubscriptionService(sc, hooks.NewRegistry())
		ok, err := s.Cancel(context.Background(), entry, feed)

		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, cancelCalled)
	})

	t.Run("period end hook defers cancellation", func(t *testing.T) {
		registry := hooks.NewRegistry()
		hooks.RegisterFilter(registry, hooks.SubscriptionCancelAtPeriodEnd, func(args *CancelAtPeriodEndArgs) *CancelAtPeriodEndArgs {
			args.AtPeriodEnd = true
			return args
		})

		var updated *stripe.SubscriptionParams
		cancelCalled := false
		sc := &fakeClient{
			updateSubscriptionFn: func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
				updated = params
				return &stripe.Subscription{ID: id}, nil
			},
			cancelSubscriptionFn: func(id string) (*stripe.Subscription, error) {
				cancelCalled = true
				return nil, nil
			},
		}

		s := newSubscriptionService(sc, registry)
		ok, err := s.Cancel(context.Background(), entry, feed)

		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, cancelCalled)
		require.NotNil(t, updated)
		require.True(t, stripe.BoolValue(updated.CancelAtPeriodEnd))
	})

	t.Run("no subscription id", func(t *testing.T) {
		s := newSubscriptionService(&fakeClient{}, hooks.NewRegistry())
		ok, err := s.Cancel(context.Background(), &models.Entry{ID: 1}, feed)

		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestProcessSubscription_PersistsCustomerID(t *testing.T) {
	entries := newFakeEntryRepo()
	registry := hooks.NewRegistry()
	cfg := config.Config{DefaultCurrency: "USD"}
	sc := &fakeClient{}
	s := NewSubscriptionService(cfg, sc, NewFieldService(registry), NewCustomerResolver(sc, registry), entries, registry)

	auth := &models.Authorization{
		IsAuthorized: true,
		Subscription: &models.SubscriptionAuthorization{SubscriptionID: "sub_1", CustomerID: "cus_1"},
	}
	entry := &models.Entry{ID: 3, FormID: 2, Fields: map[string]string{}}

	err := s.ProcessSubscription(context.Background(), auth, subscriptionFeed(), entry)

	require.NoError(t, err)
	require.Equal(t, "cus_1", entries.metaUpdates["stripe_customer_id"])
}
