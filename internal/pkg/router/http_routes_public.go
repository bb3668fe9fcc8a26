package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/constants"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(constants.RouteSignup, fiber.StatusSeeOther)
	})

	// Processor webhooks (no CSRF, signature-verified in controller)
	app.Post(constants.RouteStripeWebhook, h.webhooks.HandleStripeWebhook)
}
