package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"

	config "github.com/maheshrc27/formpay/configs"
	"github.com/maheshrc27/formpay/internal/hooks"
	"github.com/maheshrc27/formpay/internal/models"
	"github.com/maheshrc27/formpay/internal/repository"
	"github.com/maheshrc27/formpay/internal/stripeclient"
	"github.com/maheshrc27/formpay/internal/transfer"
)

var planIDSanitizer = regexp.MustCompile(`[^a-z0-9_\-]`)

// SubscriptionParamsArgs is the context handed to the subscription parameter
// extension point before the customer is subscribed to the plan.
type SubscriptionParamsArgs struct {
	Params   *stripe.SubscriptionParams
	Customer *stripe.Customer
	Plan     *stripe.Plan
	Feed     *models.Feed
	Entry    *models.Entry
	Trial    int64
}

// CancelAtPeriodEndArgs lets an extension point delay a cancellation until
// the end of the current billing period.
type CancelAtPeriodEndArgs struct {
	AtPeriodEnd bool
	Entry       *models.Entry
	Feed        *models.Feed
}

type SubscriptionService interface {
	Subscribe(ctx context.Context, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken) *models.Authorization
	ProcessSubscription(ctx context.Context, auth *models.Authorization, feed *models.Feed, entry *models.Entry) error
	Cancel(ctx context.Context, entry *models.Entry, feed *models.Feed) (bool, error)
	PlanID(feed *models.Feed, paymentAmount, trialDays int64, currencyCode string) string
}

type subscriptionService struct {
	cfg       config.Config
	sc        stripeclient.Client
	fields    FieldService
	customers *CustomerResolver
	entries   repository.EntryRepository
	hooks     *hooks.Registry
}

func NewSubscriptionService(cfg config.Config, sc stripeclient.Client, fields FieldService, customers *CustomerResolver, entries repository.EntryRepository, registry *hooks.Registry) SubscriptionService {
	return &subscriptionService{
		cfg:       cfg,
		sc:        sc,
		fields:    fields,
		customers: customers,
		entries:   entries,
		hooks:     registry,
	}
}

// PlanID derives the deterministic plan identifier. Identical feed
// configuration always maps to the same plan, so plans are looked up by this
// id before creation and never duplicated. The currency suffix is only added
// when it differs from the site currency, keeping ids of plans created before
// multi-currency support valid.
func (s *subscriptionService) PlanID(feed *models.Feed, paymentAmount, trialDays int64, currencyCode string) string {
	safeName := planIDSanitizer.ReplaceAllString(strings.ToLower(feed.Meta.FeedName), "")
	billingCycle := fmt.Sprintf("%d%s", feed.Meta.BillingCycleLength, feed.Meta.BillingCycleUnit)

	trial := ""
	if trialDays > 0 {
		trial = fmt.Sprintf("trial%ddays", trialDays)
	}

	if strings.EqualFold(currencyCode, s.cfg.DefaultCurrency) {
		currencyCode = ""
	}

	parts := []string{safeName, fmt.Sprintf("%d", feed.ID), billingCycle, trial, fmt.Sprintf("%d", paymentAmount), currencyCode}
	nonEmpty := parts[:0]
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, "_")
}

// Subscribe resolves-or-creates the plan and the customer, attaches the
// payment source and subscribes the customer to the plan. Every step's
// failure short-circuits into a failed authorization.
func (s *subscriptionService) Subscribe(ctx context.Context, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken) *models.Authorization {
	if msg := token.ErrorMessage(); msg != "" {
		return &models.Authorization{ErrorMessage: msg}
	}

	var trialDays int64
	if feed.Meta.TrialEnabled {
		trialDays = data.Trial
	}

	planID := s.PlanID(feed, data.PaymentAmount, trialDays, entry.Currency)

	plan, err := s.sc.GetPlan(ctx, planID)
	if err != nil && !stripeclient.IsNotFound(err) {
		// Anything other than a structured not-found is a real failure.
		return &models.Authorization{ErrorMessage: err.Error()}
	}

	if plan == nil {
		plan, err = s.createPlan(ctx, planID, feed, data.PaymentAmount, trialDays, entry.Currency)
		if err != nil {
			return &models.Authorization{ErrorMessage: err.Error()}
		}
	}

	customer, found, err := s.customers.GetCustomer(ctx, "", feed, entry)
	if err != nil {
		return &models.Authorization{ErrorMessage: err.Error()}
	}

	if found {
		slog.Info("updating existing customer", "customer_id", customer.ID)

		update := &stripe.CustomerParams{Source: stripe.String(token.ID)}
		if _, err := s.sc.UpdateCustomer(ctx, customer.ID, update); err != nil {
			return &models.Authorization{ErrorMessage: err.Error()}
		}

		// An existing customer cannot take the setup fee as a starting
		// balance, so it is billed as a one-off invoice item.
		if data.SetupFee > 0 {
			item := &stripe.InvoiceItemParams{
				Customer: stripe.String(customer.ID),
				Amount:   stripe.Int64(data.SetupFee),
				Currency: stripe.String(strings.ToLower(entry.Currency)),
			}
			if _, err := s.sc.AddInvoiceItem(ctx, item); err != nil {
				return &models.Authorization{ErrorMessage: err.Error()}
			}
		}
	} else {
		customer, err = s.createCustomer(ctx, feed, data, entry, token)
		if err != nil {
			return &models.Authorization{ErrorMessage: err.Error()}
		}
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customer.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{Plan: stripe.String(plan.ID)},
		},
	}
	if trialDays > 0 {
		params.TrialFromPlan = stripe.Bool(true)
	}

	args := hooks.Apply(s.hooks, hooks.SubscriptionParams, &SubscriptionParamsArgs{
		Params:   params,
		Customer: customer,
		Plan:     plan,
		Feed:     feed,
		Entry:    entry,
		Trial:    trialDays,
	})
	params = args.Params

	subscription, err := s.sc.CreateSubscription(ctx, params)
	if err != nil {
		return &models.Authorization{ErrorMessage: err.Error()}
	}

	return &models.Authorization{
		IsAuthorized: true,
		Subscription: &models.SubscriptionAuthorization{
			SubscriptionID: subscription.ID,
			CustomerID:     customer.ID,
			Amount:         data.PaymentAmount,
		},
	}
}

func (s *subscriptionService) createPlan(ctx context.Context, planID string, feed *models.Feed, paymentAmount, trialDays int64, currencyCode string) (*stripe.Plan, error) {
	params := &stripe.PlanParams{
		ID:            stripe.String(planID),
		Interval:      stripe.String(feed.Meta.BillingCycleUnit),
		IntervalCount: stripe.Int64(feed.Meta.BillingCycleLength),
		Product:       &stripe.PlanProductParams{Name: stripe.String(feed.Meta.FeedName)},
		Currency:      stripe.String(strings.ToLower(currencyCode)),
		Amount:        stripe.Int64(paymentAmount),
	}
	if trialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(trialDays)
	}

	slog.Info("creating plan", "plan_id", planID, "feed_id", feed.ID,
		"amount", paymentAmount, "interval", feed.Meta.BillingCycleUnit)

	return s.sc.CreatePlan(ctx, params)
}

func (s *subscriptionService) createCustomer(ctx context.Context, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Description: stripe.String(s.fields.GetFieldValue(entry, feed.Meta.CustomerDescription)),
		Email:       stripe.String(s.fields.GetFieldValue(entry, feed.Meta.CustomerEmail)),
		Source:      stripe.String(token.ID),
	}

	// A setup fee on a brand-new customer is rolled into the first invoice as
	// a starting balance.
	if data.SetupFee > 0 {
		params.Balance = stripe.Int64(data.SetupFee)
	}

	for key, value := range s.fields.GetMetaData(feed, entry) {
		params.AddMetadata(key, value)
	}

	couponField := feed.Meta.CustomerCoupon
	if couponField != "" {
		coupon := s.fields.OverrideFieldValue(entry.Fields[couponField], entry, couponField, "")
		if coupon != "" {
			params.AddExtra("coupon", coupon)
		}
	}

	slog.Info("creating customer", "feed_id", feed.ID, "entry_id", entry.ID)

	customer, err := s.sc.CreateCustomer(ctx, params)
	if err != nil {
		return nil, err
	}

	hooks.Run(s.hooks, hooks.CustomerAfterCreate, &CustomerAfterCreateArgs{Customer: customer, Feed: feed, Entry: entry})

	return customer, nil
}

// ProcessSubscription persists the customer id onto the entry and pushes the
// feed metadata onto the customer now that the entry id is known. Metadata
// failures are logged, not fatal.
func (s *subscriptionService) ProcessSubscription(ctx context.Context, auth *models.Authorization, feed *models.Feed, entry *models.Entry) error {
	if auth.Subscription == nil {
		return nil
	}

	if err := s.entries.UpdateMeta(ctx, entry.ID, "stripe_customer_id", auth.Subscription.CustomerID); err != nil {
		return err
	}

	metadata := s.fields.GetMetaData(feed, entry)
	if len(metadata) == 0 {
		return nil
	}

	update := &stripe.CustomerParams{}
	for key, value := range metadata {
		update.AddMetadata(key, value)
	}
	if _, err := s.sc.UpdateCustomer(ctx, auth.Subscription.CustomerID, update); err != nil {
		slog.Error("unable to save customer metadata", "customer_id", auth.Subscription.CustomerID, "error", err.Error())
	}

	return nil
}

// Cancel cancels the entry's subscription, immediately or at period end when
// an extension point asks for it. An already-canceled subscription is a
// success.
func (s *subscriptionService) Cancel(ctx context.Context, entry *models.Entry, feed *models.Feed) (bool, error) {
	if entry.TransactionID == "" {
		return false, nil
	}

	subscription, err := s.sc.GetSubscription(ctx, entry.TransactionID)
	if err != nil {
		slog.Error("unable to get subscription", "subscription_id", entry.TransactionID, "error", err.Error())
		return false, err
	}

	if subscription.Status == stripe.SubscriptionStatusCanceled {
		slog.Info("subscription already cancelled", "subscription_id", subscription.ID)
		return true, nil
	}

	args := hooks.Apply(s.hooks, hooks.SubscriptionCancelAtPeriodEnd, &CancelAtPeriodEndArgs{Entry: entry, Feed: feed})

	if args.AtPeriodEnd {
		update := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		if _, err := s.sc.UpdateSubscription(ctx, subscription.ID, update); err != nil {
			slog.Error("unable to update subscription", "subscription_id", subscription.ID, "error", err.Error())
			return false, err
		}
		slog.Info("subscription cancelling at period end", "subscription_id", subscription.ID)
		return true, nil
	}

	if _, err := s.sc.CancelSubscription(ctx, subscription.ID); err != nil {
		slog.Error("unable to cancel subscription", "subscription_id", subscription.ID, "error", err.Error())
		return false, err
	}

	slog.Info("subscription cancelled", "subscription_id", subscription.ID)
	return true, nil
}
