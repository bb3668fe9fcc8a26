package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/trib3/stripe-connect-rocketrides/app/controllers"
	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/auth"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/cache"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/database"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/env"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/ledger"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/linking"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/payout"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/router"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/session"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/settlement"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/webhook"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/rocketrides to project root
		"../../../", // Fallback
	}

	// Find the directory holding the API docs
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		AppName:   env.AppName(),
		BodyLimit: 1 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, newDependencies())

	return app
}

// newDependencies wires the services against the shared database, cache
// and session store.
func newDependencies() *controllers.Dependencies {
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()
	client := processor.NewClientFromEnv()
	if client.SecretKey == "" {
		fiberlog.Warn("[Setup] STRIPE_SECRET_KEY is not set, processor calls will fail")
	}

	store := session.NewSessionStore()
	ledgerSvc := ledger.NewService(repos, client, env.GetEnv("SETTLEMENT_CURRENCY", "usd"))
	balances := cache.NewBalanceCache(cache.GetClient(), 0)

	webhookSecret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if strings.TrimSpace(webhookSecret) == "" {
		fiberlog.Warn("[Setup] STRIPE_WEBHOOK_SECRET is not set, every webhook delivery will be rejected")
	}

	return &controllers.Dependencies{
		Sessions: store,
		Gateway:  auth.NewGateway(auth.NewPasswordProvider(repos.Ambassador), store, repos.Ambassador),
		Ledger:   ledgerSvc,
		Linking:  linking.NewService(repos.Ambassador, client),
		Engine:   settlement.NewEngine(repos, ledgerSvc, client),
		Payouts:  payout.NewService(client, env.AppName()),
		Webhooks: webhook.NewService(repos.ProcessorEvent, balances, webhookSecret),
		Balances: client,
		Cache:    balances,
	}
}
