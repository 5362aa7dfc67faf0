package handlers

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/formpay/configs"
	"github.com/maheshrc27/formpay/internal/service"
	"github.com/maheshrc27/formpay/internal/stripeclient"
)

type SettingsHandler struct {
	cfg       config.Config
	keys      service.KeysService
	newClient func(secret string) stripeclient.Client
}

func NewSettingsHandler(cfg config.Config, keys service.KeysService, newClient func(secret string) stripeclient.Client) *SettingsHandler {
	return &SettingsHandler{cfg: cfg, keys: keys, newClient: newClient}
}

// ValidateKeys confirms the secret key for the requested mode works against
// the live API. Administrators may pass ?secret=sk_... to test a key before
// saving it.
func (h *SettingsHandler) ValidateKeys(c *fiber.Ctx) error {
	mode := c.Query("mode")
	override := c.Query("secret")

	secretKey := h.keys.Resolve(service.KeyTypeSecret, mode, override, IsAdmin(c))
	if secretKey == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"valid": false,
			"error": "No secret key configured for this mode",
		})
	}

	client := h.newClient(secretKey)
	if err := client.ValidateKey(c.Context()); err != nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"valid": false,
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"valid": true})
}
