package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
)

// UserContext represents the ambassador behind a request
type UserContext struct {
	AmbassadorID   uint                  `json:"ambassador_id"`
	Email          string                `json:"email"`
	DisplayName    string                `json:"display_name"`
	IsLoggedIn     bool                  `json:"is_logged_in"`
	IsOnboarded    bool                  `json:"is_onboarded"`
	OnboardingStep models.OnboardingStep `json:"onboarding_step"`
}

// Set stores the ambassador and its derived context on the request.
func Set(c *fiber.Ctx, ambassador *models.Ambassador) {
	if ambassador == nil {
		c.Locals(KeyUserContext, UserContext{})
		c.Locals(KeyAmbassador, nil)
		return
	}
	c.Locals(KeyUserContext, UserContext{
		AmbassadorID:   ambassador.ID,
		Email:          ambassador.Email,
		DisplayName:    ambassador.DisplayName(),
		IsLoggedIn:     true,
		IsOnboarded:    ambassador.IsOnboarded(),
		OnboardingStep: ambassador.Step(),
	})
	c.Locals(KeyAmbassador, ambassador)
}

// GetUserContext retrieves the user context from fiber context
// Returns an anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// GetAmbassador returns the logged-in ambassador, or nil for anonymous requests
func GetAmbassador(c *fiber.Ctx) *models.Ambassador {
	a, _ := c.Locals(KeyAmbassador).(*models.Ambassador)
	return a
}

// IsLoggedIn checks if the current ambassador is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}
