package auth

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/usercontext"
)

// Gateway owns the logged-in state of a session.
type Gateway struct {
	provider    AuthProvider
	store       *session.Store
	ambassadors repository.AmbassadorRepository
}

func NewGateway(provider AuthProvider, store *session.Store, ambassadors repository.AmbassadorRepository) *Gateway {
	return &Gateway{provider: provider, store: store, ambassadors: ambassadors}
}

func (g *Gateway) Store() *session.Store {
	return g.store
}

// Login authenticates the credentials and binds the ambassador to a fresh session id.
func (g *Gateway) Login(c *fiber.Ctx, email, password string) (*models.Ambassador, error) {
	ambassador, err := g.provider.Authenticate(c.UserContext(), email, password)
	if err != nil {
		return nil, err
	}
	if err := g.LoginAs(c, ambassador); err != nil {
		return nil, err
	}
	return ambassador, nil
}

// LoginAs binds an already verified ambassador, e.g. right after signup.
func (g *Gateway) LoginAs(c *fiber.Ctx, ambassador *models.Ambassador) error {
	sess, err := g.store.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	sess.Set(usercontext.KeyAmbassadorID, ambassador.ID)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	usercontext.Set(c, ambassador)
	return nil
}

func (g *Gateway) Logout(c *fiber.Ctx) error {
	sess, err := g.store.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	usercontext.Set(c, nil)
	return nil
}

// Resolve returns the ambassador bound to the request's session, or nil when
// the session is anonymous or points at a deleted ambassador.
func (g *Gateway) Resolve(c *fiber.Ctx) (*models.Ambassador, error) {
	sess, err := g.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	id, ok := sess.Get(usercontext.KeyAmbassadorID).(uint)
	if !ok || id == 0 {
		return nil, nil
	}
	ambassador, err := g.ambassadors.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(apperror.FromGorm(err, "ambassador"), apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ambassador, nil
}
