package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/require"

	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/auth"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/cache"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/constants"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/database"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/ledger"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/linking"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/middleware"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/payout"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor/processortest"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/settlement"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/webhook"
)

const testWebhookSecret = "whsec_controllers"

type testEnv struct {
	app   *fiber.App
	deps  *Dependencies
	repos *repository.Repositories
	twin  *processortest.Server
}

// newTestEnv mounts the handlers the way the router does, without CSRF.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("BCRYPT_COST", "4")

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	repos := repository.NewRepositories(db)
	twin := processortest.NewServer(t)
	client := twin.ProcessorClient()

	store := session.New()
	ledgerSvc := ledger.NewService(repos, client, "usd")
	deps := &Dependencies{
		Sessions: store,
		Gateway:  auth.NewGateway(auth.NewPasswordProvider(repos.Ambassador), store, repos.Ambassador),
		Ledger:   ledgerSvc,
		Linking:  linking.NewService(repos.Ambassador, client),
		Engine:   settlement.NewEngine(repos, ledgerSvc, client),
		Payouts:  payout.NewService(client, "Rocket Rides"),
		Webhooks: webhook.NewService(repos.ProcessorEvent, nil, testWebhookSecret),
		Balances: client,
		Cache:    cache.NewBalanceCache(nil, 0),
	}

	app := fiber.New()
	app.Use(middleware.UserContextMiddleware(deps.Gateway))

	ambassadors := NewAmbassadorController(deps)
	accounts := NewStripeAccountController(deps)
	contracts := NewContractAPIController(deps)
	webhooks := NewWebhookController(deps)

	app.Get(constants.RouteSignup, ambassadors.HandleSignupStep)
	app.Post(constants.RouteSignup, ambassadors.HandleSignup)
	app.Get(constants.RouteLogin, ambassadors.HandleLoginPage)
	app.Post(constants.RouteLogin, ambassadors.HandleLogin)
	app.Post(constants.RouteLogout, middleware.RequireAuth, ambassadors.HandleLogout)
	app.Get(constants.RouteDashboard, middleware.RequireAuth, ambassadors.HandleDashboard)
	app.Post(constants.RouteTestContract, middleware.RequireAuth, ambassadors.HandleCreateTestContract)
	app.Post(constants.RouteAccept, middleware.RequireAuth, ambassadors.HandleAcceptContract)
	app.Get(constants.RouteStripeAuth, middleware.RequireAuth, accounts.HandleAuthorize)
	app.Get(constants.RouteStripeToken, middleware.RequireAuth, accounts.HandleToken)
	app.Get(constants.RouteStripeExpress, middleware.RequireAuth, accounts.HandleExpressDashboard)
	app.Post(constants.RouteStripePayout, middleware.RequireAuth, accounts.HandlePayout)
	app.Post("/api/v1/contracts", contracts.HandleCreateContract)
	app.Post("/api/v1/contracts/:uuid/accept", middleware.RequireAPISessionAuth, contracts.HandleAcceptContract)
	app.Post(constants.RouteStripeWebhook, webhooks.HandleStripeWebhook)

	return &testEnv{app: app, deps: deps, repos: repos, twin: twin}
}

// browser keeps cookies between requests like a user agent would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, app: e.app, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	for _, ck := range resp.Cookies() {
		expired := ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now()))
		if expired || ck.Value == "" {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = &http.Cookie{Name: ck.Name, Value: ck.Value}
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// postFormAcceptingJSON posts a form the way a script would, asking for JSON back.
func (b *browser) postFormAcceptingJSON(path string, form url.Values) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return b.do(req)
}

func (b *browser) postJSON(path string, body interface{}) *http.Response {
	raw, err := json.Marshal(body)
	require.NoError(b.t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

// signupAndLink walks a fresh ambassador through signup and Stripe linking.
func (e *testEnv) signupAndLink(t *testing.T, b *browser, email, accountID string) {
	t.Helper()
	resp := b.postForm(constants.RouteSignup, url.Values{"email": {email}, "password": {"secret123"}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	resp = b.postForm(constants.RouteSignup, url.Values{"first_name": {"Kim"}, "last_name": {"Doe"}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, constants.RouteStripeAuth, resp.Header.Get("Location"))

	resp = b.get(constants.RouteStripeAuth)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	authorizeURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := authorizeURL.Query().Get("state")
	require.NotEmpty(t, state)

	code := "ac_" + accountID
	e.twin.AddAuthorizationCode(code, accountID)
	resp = b.get(constants.RouteStripeToken + "?" + url.Values{"state": {state}, "code": {code}}.Encode())
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, constants.RouteDashboard, resp.Header.Get("Location"))
}

func (e *testEnv) brand(t *testing.T) {
	t.Helper()
	_, err := e.deps.Ledger.CreateBrand(context.Background(), "pay@brand.com", "routing@tribe.com", "Brand")
	require.NoError(t, err)
}
