package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"
	stripe "github.com/stripe/stripe-go/v74"

	"github.com/maheshrc27/formpay/internal/hooks"
	"github.com/maheshrc27/formpay/internal/models"
	"github.com/maheshrc27/formpay/internal/repository"
	"github.com/maheshrc27/formpay/internal/stripeclient"
	"github.com/maheshrc27/formpay/pkg/currency"
)

// testEventID is the sentinel Stripe sends for webhook configuration
// self-tests. It is acknowledged, never processed.
const testEventID = "evt_00000000000000"

// WebhookError carries the status code the webhook endpoint should answer
// with. Entry-not-found errors use 200 so the sender stops redelivering.
type WebhookError struct {
	Code    string
	Message string
	Status  int
}

func (e *WebhookError) Error() string {
	return e.Message
}

// WebhookArgs is the context handed to the webhook extension point, which may
// override or augment the produced action.
type WebhookArgs struct {
	Action *models.EntryAction
	Event  *stripe.Event
}

// WebhookService turns an inbound processor event into a normalized action
// against a persisted entry. A nil action with a nil error means the delivery
// was acknowledged but not actionable.
type WebhookService interface {
	ProcessEvent(ctx context.Context, body []byte, sigHeader string) (*models.EntryAction, error)
}

type webhookService struct {
	clients stripeclient.ModeSet
	keys    KeysService
	entries repository.EntryRepository
	feeds   repository.FeedRepository
	hooks   *hooks.Registry
	archive *ArchiveService
}

func NewWebhookService(clients stripeclient.ModeSet, keys KeysService, entries repository.EntryRepository, feeds repository.FeedRepository, registry *hooks.Registry, archive *ArchiveService) WebhookService {
	return &webhookService{
		clients: clients,
		keys:    keys,
		entries: entries,
		feeds:   feeds,
		hooks:   registry,
		archive: archive,
	}
}

func (s *webhookService) ProcessEvent(ctx context.Context, body []byte, sigHeader string) (*models.EntryAction, error) {
	event, err := s.verifyEvent(ctx, body, sigHeader)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}

	receiptID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	slog.Info("processing webhook event", "receipt_id", receiptID, "event_id", event.ID,
		"type", event.Type, "api_version", event.APIVersion)

	if s.archive != nil && s.archive.Enabled() {
		if err := s.archive.StoreEvent(ctx, receiptID, body); err != nil {
			slog.Warn("unable to archive webhook payload", "receipt_id", receiptID, "error", err.Error())
		}
	}

	action, err := s.classify(ctx, event)
	if err != nil {
		return nil, err
	}

	args := hooks.Apply(s.hooks, hooks.Webhook, &WebhookArgs{Action: action, Event: event})
	action = args.Action

	if action == nil || action.EntryID == 0 {
		slog.Info("no entry resolved for webhook event, no further processing required",
			"receipt_id", receiptID, "event_id", event.ID)
		return nil, nil
	}

	return action, nil
}

// verifyEvent establishes the event's authenticity: signature verification
// when a signing secret is configured for the payload's mode, otherwise the
// legacy authenticated re-fetch by event id. A nil event with a nil error
// means the body was empty or unparseable and the delivery is ignored.
func (s *webhookService) verifyEvent(ctx context.Context, body []byte, sigHeader string) (*stripe.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var probe struct {
		ID       string `json:"id"`
		Livemode bool   `json:"livemode"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.ID == "" {
		return nil, nil
	}

	mode := "test"
	if probe.Livemode {
		mode = "live"
	}
	slog.Info("processing webhook delivery", "mode", mode, "event_id", probe.ID)

	signingSecret := s.keys.SigningSecret(mode)
	isTestEvent := probe.ID == testEventID

	var event stripe.Event
	var err error

	if signingSecret == "" && !isTestEvent {
		// Legacy path: authenticity comes from the authenticated fetch.
		var fetched *stripe.Event
		fetched, err = s.clients.ForMode(mode).GetEvent(ctx, probe.ID)
		if fetched != nil {
			event = *fetched
		}
	} else {
		event, err = s.clients.ForMode(mode).ConstructEvent(body, sigHeader, signingSecret)
	}

	if err != nil {
		slog.Error("unable to verify webhook event", "event_id", probe.ID, "error", err.Error())
		return nil, &WebhookError{
			Code:    "invalid_request",
			Message: "Invalid request. Webhook could not be processed. " + err.Error(),
			Status:  http.StatusBadRequest,
		}
	}

	if isTestEvent {
		return nil, &WebhookError{
			Code:    "test_webhook_succeeded",
			Message: "Test webhook succeeded. Your Stripe account and webhook endpoint are configured correctly.",
			Status:  http.StatusOK,
		}
	}

	return &event, nil
}

func (s *webhookService) classify(ctx context.Context, event *stripe.Event) (*models.EntryAction, error) {
	action := &models.EntryAction{EventID: event.ID}

	switch event.Type {

	case "charge.expired", "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, err
		}

		action.TransactionID = charge.ID
		entry, werr, err := s.lookupEntry(ctx, "transaction", charge.ID, event)
		if werr != nil || err != nil {
			return nil, firstError(werr, err)
		}
		action.EntryID = entry.ID

		if charge.Captured {
			action.Type = models.ActionRefundPayment
			action.Amount = currency.Import(charge.AmountRefunded, entry.Currency)
		} else {
			action.Type = models.ActionVoidAuthorization
		}

	case "customer.subscription.deleted":
		// The event payload still carries the legacy top-level plan object.
		var subscription struct {
			ID   string       `json:"id"`
			Plan *stripe.Plan `json:"plan"`
		}
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			return nil, err
		}

		action.SubscriptionID = subscription.ID
		entry, werr, err := s.lookupEntry(ctx, "subscription", subscription.ID, event)
		if werr != nil || err != nil {
			return nil, firstError(werr, err)
		}
		action.EntryID = entry.ID
		action.Type = models.ActionCancelSubscription
		if subscription.Plan != nil {
			action.Amount = currency.Import(subscription.Plan.Amount, entry.Currency)
		}

	case "invoice.payment_succeeded":
		invoice, line, err := s.invoiceLineItem(event)
		if err != nil {
			return nil, err
		}

		action.SubscriptionID = line.Subscription
		entry, werr, lerr := s.lookupEntry(ctx, "subscription", line.Subscription, event)
		if werr != nil || lerr != nil {
			return nil, firstError(werr, lerr)
		}

		if invoice.Charge != nil {
			action.TransactionID = invoice.Charge.ID
		}
		action.EntryID = entry.ID
		action.Type = models.ActionAddSubscriptionPayment
		action.Amount = currency.Import(invoice.AmountDue, entry.Currency)

		// A positive starting balance means a setup fee or trial charge was
		// rolled into this invoice; the note records it first.
		note := ""
		if currency.Import(invoice.StartingBalance, entry.Currency) > 0 {
			note = s.capturedPaymentNote(ctx, entry) + " "
		}
		note += fmt.Sprintf("Subscription payment has been paid. Amount: %s. Subscription Id: %s",
			currency.ToMoney(action.Amount, entry.Currency), action.SubscriptionID)
		action.Note = note

	case "invoice.payment_failed":
		_, line, err := s.invoiceLineItem(event)
		if err != nil {
			return nil, err
		}

		action.SubscriptionID = line.Subscription
		entry, werr, lerr := s.lookupEntry(ctx, "subscription", line.Subscription, event)
		if werr != nil || lerr != nil {
			return nil, firstError(werr, lerr)
		}

		action.EntryID = entry.ID
		action.Type = models.ActionFailSubscriptionPayment
		action.Amount = currency.Import(line.Amount, entry.Currency)

	default:
		// Unsupported event types produce no action.
	}

	return action, nil
}

// lookupEntry resolves the entry joined by a transaction or subscription id.
// A missing entry is acknowledged with a 200-class error so the sender does
// not retry forever; many deliveries legitimately reference nothing here.
func (s *webhookService) lookupEntry(ctx context.Context, idType, id string, event *stripe.Event) (*models.Entry, *WebhookError, error) {
	entryID, found, err := s.entries.FindIDByTransactionID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		slog.Warn("entry not found for webhook event", "id_type", idType, "id", id, "event_id", event.ID)
		status := hooks.Apply(s.hooks, hooks.EntryNotFoundStatusCode, http.StatusOK)
		return nil, &WebhookError{
			Code:    "entry_not_found",
			Message: fmt.Sprintf("Entry for %s id: %s was not found. Webhook cannot be processed.", idType, id),
			Status:  status,
		}, nil
	}

	entry, ok, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("entry %d disappeared during webhook processing", entryID)
	}
	return entry, nil, nil
}

// invoiceLineItem extracts the subscription line item from an invoice event.
// Its absence is a hard error.
func (s *webhookService) invoiceLineItem(event *stripe.Event) (*stripe.Invoice, *stripe.InvoiceLineItem, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return nil, nil, err
	}

	if invoice.Lines != nil {
		for _, line := range invoice.Lines.Data {
			if line.Type == stripe.InvoiceLineItemTypeSubscription {
				return &invoice, line, nil
			}
		}
	}

	return nil, nil, &WebhookError{
		Code:    "invalid_request",
		Message: "Subscription line item not found in request",
		Status:  http.StatusBadRequest,
	}
}

// capturedPaymentNote describes the charge a positive starting balance
// represents, based on whether the entry's feed bills a setup fee.
func (s *webhookService) capturedPaymentNote(ctx context.Context, entry *models.Entry) string {
	feed, found, err := s.feeds.GetPaymentFeed(ctx, entry)
	if err == nil && found && feed.Meta.SetupFeeEnabled {
		return "Setup fee has been paid."
	}
	return "Trial has been paid."
}

func firstError(werr *WebhookError, err error) error {
	if err != nil {
		return err
	}
	if werr != nil {
		return werr
	}
	return nil
}
