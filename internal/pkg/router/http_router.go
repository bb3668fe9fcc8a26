package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trib3/stripe-connect-rocketrides/app/controllers"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/middleware"
)

type HttpRouter struct {
	deps        *controllers.Dependencies
	ambassadors *controllers.AmbassadorController
	accounts    *controllers.StripeAccountController
	webhooks    *controllers.WebhookController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally before any route
	app.Use(middleware.UserContextMiddleware(h.deps.Gateway))

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(deps *controllers.Dependencies) *HttpRouter {
	return &HttpRouter{
		deps:        deps,
		ambassadors: controllers.NewAmbassadorController(deps),
		accounts:    controllers.NewStripeAccountController(deps),
		webhooks:    controllers.NewWebhookController(deps),
	}
}
