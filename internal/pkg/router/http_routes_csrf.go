package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/constants"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/env"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/middleware"
)

func csrfConfig() csrf.Config {
	return csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/webhooks/")
		},
	}
}

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	group := app.Group("", cors.New(), csrf.New(csrfConfig()))

	// Signup and login
	group.Get(constants.RouteSignup, h.ambassadors.HandleSignupStep)
	group.Post(constants.RouteSignup, h.ambassadors.HandleSignup)
	group.Get(constants.RouteLogin, h.ambassadors.HandleLoginPage)
	group.Post(constants.RouteLogin, h.ambassadors.HandleLogin)
	group.Post(constants.RouteLogout, middleware.RequireAuth, h.ambassadors.HandleLogout)

	// Dashboard and contracts
	group.Get(constants.RouteDashboard, middleware.RequireAuth, h.ambassadors.HandleDashboard)
	group.Post(constants.RouteTestContract, middleware.RequireAuth, h.ambassadors.HandleCreateTestContract)
	group.Post(constants.RouteAccept, middleware.RequireAuth, h.ambassadors.HandleAcceptContract)

	// Stripe Express account
	group.Get(constants.RouteStripeAuth, middleware.RequireAuth, h.accounts.HandleAuthorize)
	group.Get(constants.RouteStripeToken, middleware.RequireAuth, h.accounts.HandleToken)
	group.Get(constants.RouteStripeExpress, middleware.RequireAuth, h.accounts.HandleExpressDashboard)
	group.Post(constants.RouteStripePayout, middleware.RequireAuth, h.accounts.HandlePayout)
}
