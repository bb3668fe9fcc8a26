package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/trib3/stripe-connect-rocketrides/app/controllers"
	apiv1 "github.com/trib3/stripe-connect-rocketrides/internal/api/v1"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/env"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/middleware"
)

type ApiRouter struct {
	server *apiv1.APIServer
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, h.server, apiv1.Middlewares{
		PostContracts:      []fiber.Handler{middleware.APIKeyAuthMiddleware(env.GetEnv("API_KEY", ""))},
		PostContractAccept: []fiber.Handler{middleware.RequireAPISessionAuth},
	})
}

func NewApiRouter(deps *controllers.Dependencies) *ApiRouter {
	return &ApiRouter{server: apiv1.NewAPIServer(deps)}
}
