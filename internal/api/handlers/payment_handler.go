package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/formpay/internal/models"
	"github.com/maheshrc27/formpay/internal/repository"
	"github.com/maheshrc27/formpay/internal/service"
	"github.com/maheshrc27/formpay/internal/transfer"
	"github.com/maheshrc27/formpay/pkg/currency"
)

type PaymentHandler struct {
	charges       service.ChargeService
	subscriptions service.SubscriptionService
	feeds         repository.FeedRepository
	entries       repository.EntryRepository
}

func NewPaymentHandler(charges service.ChargeService, subscriptions service.SubscriptionService, feeds repository.FeedRepository, entries repository.EntryRepository) *PaymentHandler {
	return &PaymentHandler{
		charges:       charges,
		subscriptions: subscriptions,
		feeds:         feeds,
		entries:       entries,
	}
}

// ProcessSubmission turns a form submission plus a client-side payment token
// into a captured charge or a subscription, persisted on a new entry.
func (h *PaymentHandler) ProcessSubmission(c *fiber.Ctx) error {
	var req transfer.SubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	feeds, err := h.feeds.GetFeedsForForm(c.Context(), req.FormID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	var feed *models.Feed
	for _, f := range feeds {
		if f.IsActive {
			feed = f
			break
		}
	}
	if feed == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "No active payment feed configured for this form",
		})
	}

	token, err := transfer.ParsePaymentToken(req.StripeResponse)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed payment token"})
	}

	entry := &models.Entry{
		FormID:        req.FormID,
		Currency:      req.Currency,
		PaymentStatus: models.PaymentStatusFailed,
		Fields:        req.Fields,
		Meta:          map[string]string{},
	}
	entryID, err := h.entries.Create(c.Context(), entry)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	entry.ID = entryID

	data := &models.SubmissionData{
		PaymentAmount: req.PaymentAmount,
		SetupFee:      req.SetupFee,
		Trial:         req.Trial,
	}
	for _, item := range req.LineItems {
		data.LineItems = append(data.LineItems, models.LineItem{Name: item.Name, Quantity: item.Quantity, Amount: item.Amount})
	}

	if feed.Meta.TransactionType == models.TransactionTypeSubscription {
		return h.processSubscription(c, feed, data, entry, token)
	}
	return h.processSingle(c, feed, data, entry, token, req.CardType)
}

func (h *PaymentHandler) processSingle(c *fiber.Ctx, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken, cardType string) error {
	auth := h.charges.Authorize(c.Context(), feed, data, entry, token)
	if !auth.IsAuthorized {
		return h.failEntry(c, entry, auth.ErrorMessage)
	}

	payment := h.charges.Capture(c.Context(), auth, feed, data, entry, cardType)

	if payment == nil {
		// Authorization-only mode: the charge stays uncaptured by request.
		entry.TransactionID = auth.TransactionID
		entry.PaymentStatus = models.PaymentStatusAuthorized
		if err := h.entries.UpdatePayment(c.Context(), entry); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusOK).JSON(submissionResponse(entry, auth, 0))
	}

	if !payment.IsSuccess {
		// The charge is authorized but uncaptured remotely; keep that state
		// on the entry so the operator can reconcile it.
		entry.TransactionID = auth.TransactionID
		entry.PaymentStatus = models.PaymentStatusAuthorized
		if err := h.entries.UpdatePayment(c.Context(), entry); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		resp := submissionResponse(entry, auth, 0)
		resp.ErrorMessage = payment.ErrorMessage
		return c.Status(fiber.StatusBadGateway).JSON(resp)
	}

	entry.TransactionID = payment.TransactionID
	entry.PaymentStatus = models.PaymentStatusPaid
	entry.PaymentAmount = payment.Amount
	entry.PaymentMethod = payment.PaymentMethod
	if err := h.entries.UpdatePayment(c.Context(), entry); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(submissionResponse(entry, auth, payment.Amount))
}

func (h *PaymentHandler) processSubscription(c *fiber.Ctx, feed *models.Feed, data *models.SubmissionData, entry *models.Entry, token *transfer.PaymentToken) error {
	auth := h.subscriptions.Subscribe(c.Context(), feed, data, entry, token)
	if !auth.IsAuthorized {
		return h.failEntry(c, entry, auth.ErrorMessage)
	}

	amount := currency.Import(auth.Subscription.Amount, entry.Currency)

	entry.TransactionID = auth.Subscription.SubscriptionID
	entry.PaymentStatus = models.PaymentStatusActive
	entry.PaymentAmount = amount
	if err := h.entries.UpdatePayment(c.Context(), entry); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.subscriptions.ProcessSubscription(c.Context(), auth, feed, entry); err != nil {
		slog.Error("unable to finalize subscription entry", "entry_id", entry.ID, "error", err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(submissionResponse(entry, auth, amount))
}

func (h *PaymentHandler) failEntry(c *fiber.Ctx, entry *models.Entry, message string) error {
	entry.PaymentStatus = models.PaymentStatusFailed
	if err := h.entries.UpdatePayment(c.Context(), entry); err != nil {
		slog.Info(err.Error())
	}
	return c.Status(fiber.StatusPaymentRequired).JSON(transfer.SubmissionResponse{
		EntryID:       entry.ID,
		PaymentStatus: entry.PaymentStatus,
		ErrorMessage:  message,
	})
}

func submissionResponse(entry *models.Entry, auth *models.Authorization, amount float64) transfer.SubmissionResponse {
	resp := transfer.SubmissionResponse{
		EntryID:       entry.ID,
		IsAuthorized:  true,
		PaymentStatus: entry.PaymentStatus,
		Amount:        amount,
	}
	if auth.Subscription != nil {
		resp.SubscriptionID = auth.Subscription.SubscriptionID
		resp.CustomerID = auth.Subscription.CustomerID
	} else {
		resp.TransactionID = entry.TransactionID
	}
	return resp
}
