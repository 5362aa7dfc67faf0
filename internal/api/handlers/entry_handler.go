package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/formpay/internal/models"
	"github.com/maheshrc27/formpay/internal/repository"
	"github.com/maheshrc27/formpay/internal/service"
)

type EntryHandler struct {
	subscriptions service.SubscriptionService
	entries       repository.EntryRepository
	feeds         repository.FeedRepository
}

func NewEntryHandler(subscriptions service.SubscriptionService, entries repository.EntryRepository, feeds repository.FeedRepository) *EntryHandler {
	return &EntryHandler{subscriptions: subscriptions, entries: entries, feeds: feeds}
}

// CancelSubscription cancels the subscription attached to an entry.
func (h *EntryHandler) CancelSubscription(c *fiber.Ctx) error {
	entryID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid entry id"})
	}

	entry, found, err := h.entries.GetByID(c.Context(), entryID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Entry not found"})
	}

	feed, _, err := h.feeds.GetPaymentFeed(c.Context(), entry)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	cancelled, err := h.subscriptions.Cancel(c.Context(), entry, feed)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	if !cancelled {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Entry has no subscription to cancel",
		})
	}

	action := &models.EntryAction{
		EventID:        "manual_cancel_" + c.Params("id"),
		Type:           models.ActionCancelSubscription,
		EntryID:        entry.ID,
		SubscriptionID: entry.TransactionID,
		Note:           "Subscription cancelled by administrator.",
	}
	if err := h.entries.ApplyAction(c.Context(), action); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"cancelled": true})
}
