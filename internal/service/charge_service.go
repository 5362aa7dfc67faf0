package service

import (
	"context"
	"log/slog"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"

	"github.com/maheshrc27/formpay/internal/hooks"
	"github.com/maheshrc27/formpay/internal/models"
	"github.com/maheshrc27/formpay/internal/stripeclient"
	"github.com/maheshrc27/formpay/internal/transfer"
	"github.com/maheshrc27/formpay/pkg/currency"
)

const receiptFieldDisabled = "do not send receipt"

// ChargeArgs is the context handed to the charge pre-create extension point.
// Callbacks may rewrite Params entirely before submission.
type ChargeArgs struct {
	Params *stripe.ChargeParams
	Feed   *models.Feed
	Data   *models.SubmissionData
	Entry  *models.Entry
}

// AuthorizationOnlyArgs lets an extension point opt a feed out of capture,
// leaving the charge authorized.
type AuthorizationOnlyArgs struct {
	AuthorizationOnly bool
	Feed              *models.Feed
	Data              *models.SubmissionData
	Entry             *models.Entry
}

// ChargeService runs the two-phase authorize/capture sequence for one-time
// payments. Neither phase retries: authorization is not safely retryable
// without idempotency keys, and a failed capture leaves the charge authorized
// remotely for the operator to reconcile.
type ChargeService interface {
	Authorize(ctx context.Context, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken) *models.Authorization
	Capture(ctx context.Context, auth *models.Authorization, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, cardType string) *models.Payment
}

type chargeService struct {
	sc        stripeclient.Client
	fields    FieldService
	customers *CustomerResolver
	hooks     *hooks.Registry
}

func NewChargeService(sc stripeclient.Client, fields FieldService, customers *CustomerResolver, registry *hooks.Registry) ChargeService {
	return &chargeService{sc: sc, fields: fields, customers: customers, hooks: registry}
}

func (s *chargeService) Authorize(ctx context.Context, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken) *models.Authorization {
	// A token-side error fails the authorization without touching Stripe.
	if msg := token.ErrorMessage(); msg != "" {
		return &models.Authorization{ErrorMessage: msg}
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(data.PaymentAmount),
		Currency:    stripe.String(strings.ToLower(entry.Currency)),
		Description: stripe.String(s.fields.PaymentDescription(entry, data, feed)),
		Capture:     stripe.Bool(false),
	}

	customer, found, err := s.customers.GetCustomer(ctx, "", feed, entry)
	if err != nil {
		return &models.Authorization{ErrorMessage: err.Error()}
	}

	if found {
		// Attach the token as the customer's new source so the charge is
		// linked to the saved customer instead of the raw token.
		update := &stripe.CustomerParams{Source: stripe.String(token.ID)}
		if _, err := s.sc.UpdateCustomer(ctx, customer.ID, update); err != nil {
			return &models.Authorization{ErrorMessage: err.Error()}
		}
		params.Customer = stripe.String(customer.ID)
	} else {
		if err := params.SetSource(token.ID); err != nil {
			return &models.Authorization{ErrorMessage: err.Error()}
		}
	}

	receiptField := feed.Meta.ReceiptField
	if receiptField != "" && strings.ToLower(receiptField) != receiptFieldDisabled {
		params.ReceiptEmail = stripe.String(s.fields.GetFieldValue(entry, receiptField))
	}

	for key, value := range s.fields.GetMetaData(feed, entry) {
		params.AddMetadata(key, value)
	}

	args := hooks.Apply(s.hooks, hooks.ChargePreCreate, &ChargeArgs{Params: params, Feed: feed, Data: data, Entry: entry})
	params = args.Params

	slog.Info("creating charge", "entry_id", entry.ID, "feed_id", feed.ID,
		"amount", data.PaymentAmount, "currency", entry.Currency)

	charge, err := s.sc.CreateCharge(ctx, params)
	if err != nil {
		slog.Info(err.Error())
		return &models.Authorization{ErrorMessage: err.Error()}
	}

	return &models.Authorization{IsAuthorized: true, TransactionID: charge.ID}
}

// Capture retrieves the authorized charge, refreshes its description and
// metadata, then captures it. A nil result means an extension point kept the
// transaction authorization-only. Capture failure is surfaced without retry;
// the charge stays authorized-but-uncaptured remotely.
func (s *chargeService) Capture(ctx context.Context, auth *models.Authorization, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, cardType string) *models.Payment {
	if _, err := s.sc.GetCharge(ctx, auth.TransactionID); err != nil {
		slog.Error("unable to retrieve charge", "transaction_id", auth.TransactionID, "error", err.Error())
		return &models.Payment{ErrorMessage: err.Error()}
	}

	update := &stripe.ChargeParams{
		Description: stripe.String(s.fields.PaymentDescription(entry, data, feed)),
	}
	for key, value := range s.fields.GetMetaData(feed, entry) {
		update.AddMetadata(key, value)
	}
	if _, err := s.sc.UpdateCharge(ctx, auth.TransactionID, update); err != nil {
		slog.Error("unable to update charge", "transaction_id", auth.TransactionID, "error", err.Error())
		return &models.Payment{ErrorMessage: err.Error()}
	}

	args := hooks.Apply(s.hooks, hooks.ChargeAuthorizationOnly, &AuthorizationOnlyArgs{Feed: feed, Data: data, Entry: entry})
	if args.AuthorizationOnly {
		slog.Info("capture skipped, transaction kept authorization-only", "entry_id", entry.ID)
		return nil
	}

	charge, err := s.sc.CaptureCharge(ctx, auth.TransactionID)
	if err != nil {
		slog.Error("unable to capture charge", "transaction_id", auth.TransactionID, "error", err.Error())
		return &models.Payment{ErrorMessage: err.Error()}
	}

	return &models.Payment{
		IsSuccess:     true,
		TransactionID: charge.ID,
		Amount:        currency.Import(charge.Amount, entry.Currency),
		PaymentMethod: cardType,
	}
}
