package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/webhook"
)

type WebhookController struct {
	deps *Dependencies
}

func NewWebhookController(deps *Dependencies) *WebhookController {
	return &WebhookController{deps: deps}
}

// HandleStripeWebhook records a Stripe delivery. The route carries no CSRF
// protection; the signature header authenticates it.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	outcome, err := wc.deps.Webhooks.Handle(c.UserContext(), rawBody, c.Get(processor.SignatureHeader))
	switch {
	case errors.Is(err, webhook.ErrInvalidPayload):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	case outcome == webhook.OutcomeInvalidSignature:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	case err != nil:
		fiberlog.Errorf("[Webhook] failed to handle delivery: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	return c.JSON(fiber.Map{"ok": true, "outcome": outcome})
}
