package router

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/constants"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/env"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/metrics"
)

// OpsRouter serves Prometheus metrics and the fiber monitor page.
type OpsRouter struct {
	monitorUser     string
	monitorPassword string
}

func (o OpsRouter) InstallRouter(app *fiber.App) {
	app.Use(metrics.Middleware())
	app.Get(constants.RouteMetrics, metrics.Handler())

	if o.monitorPassword == "" {
		fiberlog.Info("[Router] MONITOR_PASSWORD not set, monitor disabled")
		return
	}
	app.Get(constants.RouteMonitor, basicauth.New(basicauth.Config{
		Users: map[string]string{
			o.monitorUser: o.monitorPassword,
		},
	}), monitor.New(monitor.Config{Title: env.AppName() + " Monitor"}))
}

func NewOpsRouter() *OpsRouter {
	return &OpsRouter{
		monitorUser:     env.GetEnv("MONITOR_USER", "admin"),
		monitorPassword: env.GetEnv("MONITOR_PASSWORD", ""),
	}
}
