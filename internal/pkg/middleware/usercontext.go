package middleware

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/usercontext"
)

// AmbassadorResolver finds the ambassador a request's session belongs to.
// It returns nil without error for anonymous requests.
type AmbassadorResolver interface {
	Resolve(c *fiber.Ctx) (*models.Ambassador, error)
}

// UserContextMiddleware sets up the user context for every request. Resolver
// failures degrade to an anonymous request.
func UserContextMiddleware(resolver AmbassadorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ambassador, err := resolver.Resolve(c)
		if err != nil {
			fiberlog.Warnf("[Session] could not resolve ambassador: %v", err)
			ambassador = nil
		}
		usercontext.Set(c, ambassador)
		return c.Next()
	}
}
