package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/sujit-baniya/flash"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/auth"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/cache"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/ledger"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/linking"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/payout"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/settlement"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/webhook"
)

// BalanceSource reads a connected account's balance from the processor.
type BalanceSource interface {
	RetrieveBalance(ctx context.Context, accountID string) (*processor.Balance, error)
}

// Dependencies bundles the services the HTTP handlers delegate to.
type Dependencies struct {
	Sessions *session.Store
	Gateway  *auth.Gateway
	Ledger   *ledger.Service
	Linking  *linking.Service
	Engine   *settlement.Engine
	Payouts  *payout.Service
	Webhooks *webhook.Service
	Balances BalanceSource
	Cache    *cache.BalanceCache
}

// csrfToken returns the token issued by the csrf middleware, if any.
func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals("csrf").(string)
	return token
}

// jsonError writes the public part of err with its mapped status code.
// Unexpected errors are logged and answered with a generic message.
func jsonError(c *fiber.Ctx, err error) error {
	status := apperror.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		fiberlog.Errorf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": apperror.PublicMessage(err),
	})
}

// prefersJSON reports whether the client ranks JSON above HTML. Requests
// without an Accept header are treated as browser form posts.
func prefersJSON(c *fiber.Ctx) bool {
	if c.Get(fiber.HeaderAccept) == "" {
		return false
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// redirectWithError flashes the public part of err and redirects.
func redirectWithError(c *fiber.Ctx, location string, err error) error {
	if apperror.HTTPStatus(err) == fiber.StatusInternalServerError {
		fiberlog.Errorf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}
	fm := fiber.Map{
		"type":    "error",
		"message": apperror.PublicMessage(err),
	}
	return flash.WithError(c, fm).Redirect(location)
}

func redirectWithSuccess(c *fiber.Ctx, location, message string) error {
	fm := fiber.Map{
		"type":    "success",
		"message": message,
	}
	return flash.WithSuccess(c, fm).Redirect(location)
}
