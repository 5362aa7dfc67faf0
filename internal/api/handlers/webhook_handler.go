package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/formpay/internal/repository"
	"github.com/maheshrc27/formpay/internal/service"
)

type WebhookHandler struct {
	s       service.WebhookService
	entries repository.EntryRepository
}

func NewWebhookHandler(s service.WebhookService, entries repository.EntryRepository) *WebhookHandler {
	return &WebhookHandler{s: s, entries: entries}
}

// ProcessWebhook receives a Stripe webhook delivery, maps it to a normalized
// entry action and applies it. Unactionable deliveries are acknowledged with
// 200 so Stripe stops redelivering them.
func (h *WebhookHandler) ProcessWebhook(c *fiber.Ctx) error {
	body := c.Body()
	sigHeader := c.Get("Stripe-Signature")

	action, err := h.s.ProcessEvent(c.Context(), body, sigHeader)
	if err != nil {
		var webhookErr *service.WebhookError
		if errors.As(err, &webhookErr) {
			return c.Status(webhookErr.Status).JSON(fiber.Map{
				"code":    webhookErr.Code,
				"message": webhookErr.Message,
			})
		}
		slog.Error("webhook processing failed", "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if action == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"processed": false})
	}

	if err := h.entries.ApplyAction(c.Context(), action); err != nil {
		slog.Error("unable to apply webhook action", "entry_id", action.EntryID, "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"processed": true,
		"action":    action,
	})
}
