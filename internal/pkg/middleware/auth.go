package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/constants"
	icuser "github.com/trib3/stripe-connect-rocketrides/internal/pkg/usercontext"
)

// RequireAuth ensures a logged-in web session; redirects to the login page if missing.
func RequireAuth(c *fiber.Ctx) error {
	if icuser.GetAmbassador(c) == nil {
		return c.Redirect(constants.RouteLogin, fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if icuser.GetAmbassador(c) == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
