package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/auth"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/constants"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/flash"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/ledger"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/usercontext"
)

// AmbassadorController serves signup, login and the ambassador dashboard.
type AmbassadorController struct {
	deps *Dependencies
}

func NewAmbassadorController(deps *Dependencies) *AmbassadorController {
	return &AmbassadorController{deps: deps}
}

// nextSignupRoute is where an ambassador in the given step continues.
func nextSignupRoute(step models.OnboardingStep) string {
	switch step {
	case models.OnboardingPayout:
		return constants.RouteStripeAuth
	case models.OnboardingComplete:
		return constants.RouteDashboard
	default:
		return constants.RouteSignup
	}
}

// HandleSignupStep reports the current onboarding step. Onboarded
// ambassadors are sent to their dashboard.
func (ac *AmbassadorController) HandleSignupStep(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	step := models.OnboardingAccount
	if ambassador != nil {
		step = ambassador.Step()
		if ambassador.IsOnboarded() {
			return c.Redirect(constants.RouteDashboard, fiber.StatusSeeOther)
		}
	}

	resp := fiber.Map{
		"step":       step,
		"logged_in":  ambassador != nil,
		"csrf_token": csrfToken(c),
	}
	if ambassador != nil {
		resp["ambassador"] = ambassador
	}
	if msg := flash.Error(c); msg != "" {
		resp["error"] = msg
	}
	return c.JSON(resp)
}

// HandleSignup creates the account for anonymous visitors and stores the
// profile for ambassadors in the profile step.
func (ac *AmbassadorController) HandleSignup(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ambassador := usercontext.GetAmbassador(c)

	if ambassador == nil {
		created, err := ac.deps.Ledger.CreateAmbassador(ctx, c.FormValue("email"), c.FormValue("password"))
		if err != nil {
			return redirectWithError(c, constants.RouteSignup, err)
		}
		if err := ac.deps.Gateway.LoginAs(c, created); err != nil {
			return redirectWithError(c, constants.RouteLogin, err)
		}
		fiberlog.Infof("[Signup] ambassador %d created", created.ID)
		return c.Redirect(nextSignupRoute(created.Step()), fiber.StatusSeeOther)
	}

	if ambassador.Step() == models.OnboardingProfile {
		if err := ac.deps.Ledger.UpdateProfile(ctx, ambassador, c.FormValue("first_name"), c.FormValue("last_name")); err != nil {
			return redirectWithError(c, constants.RouteSignup, err)
		}
	}
	return c.Redirect(nextSignupRoute(ambassador.Step()), fiber.StatusSeeOther)
}

// HandleLoginPage reports the login state for clients rendering the form.
func (ac *AmbassadorController) HandleLoginPage(c *fiber.Ctx) error {
	resp := fiber.Map{
		"logged_in":  usercontext.IsLoggedIn(c),
		"csrf_token": csrfToken(c),
	}
	if msg := flash.Error(c); msg != "" {
		resp["error"] = msg
	}
	return c.JSON(resp)
}

func (ac *AmbassadorController) HandleLogin(c *fiber.Ctx) error {
	ambassador, err := ac.deps.Gateway.Login(c, c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return redirectWithError(c, constants.RouteLogin, apperror.Invalid("", "There is a problem with the login process"))
		}
		return redirectWithError(c, constants.RouteLogin, err)
	}
	return c.Redirect(nextSignupRoute(ambassador.Step()), fiber.StatusSeeOther)
}

func (ac *AmbassadorController) HandleLogout(c *fiber.Ctx) error {
	if err := ac.deps.Gateway.Logout(c); err != nil {
		return redirectWithError(c, constants.RouteLogin, err)
	}
	return redirectWithSuccess(c, constants.RouteLogin, "Logged out")
}

// HandleDashboard returns the balance, the contracts of the last 30 days
// and whether the onboarding-complete banner should be shown.
func (ac *AmbassadorController) HandleDashboard(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	if !ambassador.IsOnboarded() {
		return c.Redirect(constants.RouteSignup, fiber.StatusSeeOther)
	}
	ctx := c.UserContext()

	contracts, err := ac.deps.Ledger.RecentContracts(ctx, ambassador.ID)
	if err != nil {
		return jsonError(c, err)
	}

	balance := fiber.Map{"amount": int64(0), "currency": ac.deps.Ledger.Currency()}
	if available, err := ac.availableBalance(c, ambassador.PayoutDestination()); err != nil {
		fiberlog.Warnf("[Dashboard] balance for ambassador %d unavailable: %v", ambassador.ID, err)
		balance["unavailable"] = true
	} else if available.Currency != "" {
		balance["amount"] = available.Amount
		balance["currency"] = available.Currency
	}

	resp := fiber.Map{
		"ambassador":  ambassador,
		"balance":     balance,
		"contracts":   contracts,
		"total":       models.TotalAmount(contracts),
		"window_days": int(ledger.RecentWindow.Hours() / 24),
		"show_banner": flash.ShowBanner(c),
		"csrf_token":  csrfToken(c),
	}
	if msg := flash.Error(c); msg != "" {
		resp["error"] = msg
	}
	return c.JSON(resp)
}

// HandleCreateTestContract simulates a brand sending the ambassador a contract.
func (ac *AmbassadorController) HandleCreateTestContract(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	if _, err := ac.deps.Engine.CreateTestContract(c.UserContext(), ambassador); err != nil {
		return redirectWithError(c, constants.RouteDashboard, err)
	}
	return c.Redirect(constants.RouteDashboard, fiber.StatusSeeOther)
}

// HandleAcceptContract settles one of the ambassador's own contracts.
// Browsers get a flash and a redirect; clients that prefer JSON get the
// contract or the error status (402 for processor failures).
func (ac *AmbassadorController) HandleAcceptContract(c *fiber.Ctx) error {
	ambassador := usercontext.GetAmbassador(c)
	asJSON := prefersJSON(c)
	contractID := strings.TrimSpace(c.FormValue("contractID"))
	if contractID == "" {
		err := apperror.Invalid("contractID", "is required")
		if asJSON {
			return jsonError(c, err)
		}
		return redirectWithError(c, constants.RouteDashboard, err)
	}
	contract, err := acceptOwnContract(c, ac.deps, ambassador, contractID)
	if err != nil {
		if asJSON {
			return jsonError(c, err)
		}
		return redirectWithError(c, constants.RouteDashboard, err)
	}
	if asJSON {
		return c.JSON(contract)
	}
	return redirectWithSuccess(c, constants.RouteDashboard, "Contract accepted")
}

func (ac *AmbassadorController) availableBalance(c *fiber.Ctx, accountID string) (processor.BalanceAmount, error) {
	ctx := c.UserContext()
	if cached, ok := ac.deps.Cache.Get(ctx, accountID); ok {
		return cached.FirstAvailable(), nil
	}
	bal, err := ac.deps.Balances.RetrieveBalance(ctx, accountID)
	if err != nil {
		return processor.BalanceAmount{}, err
	}
	ac.deps.Cache.Set(ctx, accountID, bal)
	return bal.FirstAvailable(), nil
}

// acceptOwnContract refuses contracts of other ambassadors as not found.
func acceptOwnContract(c *fiber.Ctx, deps *Dependencies, ambassador *models.Ambassador, contractID string) (*models.Contract, error) {
	ctx := c.UserContext()
	contract, err := deps.Ledger.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.AmbassadorID != ambassador.ID {
		return nil, apperror.NotFound("contract")
	}
	settled, err := deps.Engine.AcceptContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	deps.Cache.Invalidate(ctx, ambassador.PayoutDestination())
	return settled, nil
}
