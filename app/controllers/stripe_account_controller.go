package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/constants"
	iflash "github.com/trib3/stripe-connect-rocketrides/internal/pkg/flash"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/usercontext"
)

// StripeAccountController links ambassadors to Stripe Express accounts and
// triggers payouts from them.
type StripeAccountController struct {
	deps *Dependencies
}

func NewStripeAccountController(deps *Dependencies) *StripeAccountController {
	return &StripeAccountController{deps: deps}
}

// HandleAuthorize starts the OAuth round trip to Stripe Express onboarding.
func (sc *StripeAccountController) HandleAuthorize(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	sess, err := sc.deps.Sessions.Get(c)
	if err != nil {
		return redirectWithError(c, constants.RouteSignup, err)
	}
	redirectURL, err := sc.deps.Linking.Start(sess, ambassador)
	if err != nil {
		return redirectWithError(c, constants.RouteSignup, err)
	}
	if err := sess.Save(); err != nil {
		return redirectWithError(c, constants.RouteSignup, err)
	}
	return c.Redirect(redirectURL, fiber.StatusFound)
}

// HandleToken completes the round trip Stripe redirects back to.
func (sc *StripeAccountController) HandleToken(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	sess, err := sc.deps.Sessions.Get(c)
	if err != nil {
		return redirectWithError(c, constants.RouteSignup, err)
	}

	if errParam := c.Query("error"); errParam != "" {
		fiberlog.Warnf("[Linking] ambassador %d returned with %s: %s", ambassador.ID, errParam, c.Query("error_description"))
	}

	result, err := sc.deps.Linking.Complete(c.UserContext(), sess, ambassador, c.Query("state"), c.Query("code"))
	// the state is single use whatever the outcome
	if saveErr := sess.Save(); saveErr != nil {
		fiberlog.Errorf("[Linking] failed to save session: %v", saveErr)
	}
	if err != nil {
		return redirectWithError(c, constants.RouteSignup, err)
	}

	fm := fiber.Map{
		"type":               "success",
		"message":            "Your Stripe account is connected",
		iflash.ShowBannerKey: result.ShowBanner,
	}
	return flash.WithSuccess(c, fm).Redirect(constants.RouteDashboard)
}

// HandleExpressDashboard redirects to a login link for the Express dashboard.
// ?account=yes opens the account tab.
func (sc *StripeAccountController) HandleExpressDashboard(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	link, err := sc.deps.Linking.DashboardLink(c.UserContext(), ambassador, c.Query("account") == "yes")
	if err != nil {
		if errors.Is(err, apperror.ErrNotOnboarded) {
			return c.Redirect(constants.RouteSignup, fiber.StatusSeeOther)
		}
		return redirectWithError(c, constants.RouteDashboard, err)
	}
	return c.Redirect(link, fiber.StatusFound)
}

// HandlePayout pays out the available balance. The ambassador always lands
// back on the dashboard; failures are logged and flashed.
func (sc *StripeAccountController) HandlePayout(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	result, err := sc.deps.Payouts.Payout(c.UserContext(), ambassador)
	if err != nil {
		if errors.Is(err, apperror.ErrNotOnboarded) {
			return c.Redirect(constants.RouteSignup, fiber.StatusSeeOther)
		}
		fiberlog.Errorf("[Payout] payout for ambassador %d failed: %v", ambassador.ID, err)
		return redirectWithError(c, constants.RouteDashboard, err)
	}
	sc.deps.Cache.Invalidate(c.UserContext(), ambassador.PayoutDestination())
	if result.Skipped {
		return redirectWithSuccess(c, constants.RouteDashboard, "No balance available for payout")
	}
	return redirectWithSuccess(c, constants.RouteDashboard, "Payout is on its way")
}
