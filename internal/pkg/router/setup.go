package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trib3/stripe-connect-rocketrides/app/controllers"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, deps *controllers.Dependencies) {
	// Install HttpRouter first: it mounts the global UserContext middleware
	// the API session routes depend on.
	setup(app, NewOpsRouter(), NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
