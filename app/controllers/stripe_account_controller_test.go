package controllers

import (
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/constants"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor/processortest"
)

func TestAuthorizeRedirectsToExpressOnboarding(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.postForm(constants.RouteSignup, url.Values{"email": {"kim@example.com"}, "password": {"secret123"}})
	b.postForm(constants.RouteSignup, url.Values{"first_name": {"Kim"}, "last_name": {"Doe"}})

	resp := b.get(constants.RouteStripeAuth)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	target, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	q := target.Query()
	assert.Equal(t, processortest.TestClientID, q.Get("client_id"))
	assert.Equal(t, "Kim", q.Get("stripe_user[first_name]"))
	assert.Equal(t, "kim@example.com", q.Get("stripe_user[email]"))
	assert.NotEmpty(t, q.Get("state"))
}

func TestTokenCallbackRejectsForgedState(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.postForm(constants.RouteSignup, url.Values{"email": {"kim@example.com"}, "password": {"secret123"}})
	b.postForm(constants.RouteSignup, url.Values{"first_name": {"Kim"}, "last_name": {"Doe"}})
	b.get(constants.RouteStripeAuth)
	env.twin.AddAuthorizationCode("ac_1", "acct_1")

	resp := b.get(constants.RouteStripeToken + "?state=forged&code=ac_1")
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, constants.RouteSignup, resp.Header.Get("Location"))
	assert.Equal(t, 0, env.twin.TokenExchanges())

	body := decodeJSON(t, b.get(constants.RouteSignup))
	assert.Contains(t, body["error"], "state mismatch")
}

func TestTokenCallbackStateIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.postForm(constants.RouteSignup, url.Values{"email": {"kim@example.com"}, "password": {"secret123"}})
	b.postForm(constants.RouteSignup, url.Values{"first_name": {"Kim"}, "last_name": {"Doe"}})
	resp := b.get(constants.RouteStripeAuth)
	target, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := target.Query().Get("state")

	// a wrong code still consumes the state
	resp = b.get(constants.RouteStripeToken + "?" + url.Values{"state": {state}, "code": {"ac_unknown"}}.Encode())
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, 1, env.twin.TokenExchanges())

	env.twin.AddAuthorizationCode("ac_1", "acct_1")
	resp = b.get(constants.RouteStripeToken + "?" + url.Values{"state": {state}, "code": {"ac_1"}}.Encode())
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, constants.RouteSignup, resp.Header.Get("Location"))
	assert.Equal(t, 1, env.twin.TokenExchanges())
}

func TestExpressDashboardLink(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	env.signupAndLink(t, b, "kim@example.com", "acct_kim")

	resp := b.get(constants.RouteStripeExpress)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.NotContains(t, resp.Header.Get("Location"), "#/account")

	resp = b.get(constants.RouteStripeExpress + "?account=yes")
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasSuffix(resp.Header.Get("Location"), "#/account"))
	assert.Equal(t, 2, env.twin.LoginLinks("acct_kim"))
}

func TestExpressDashboardNotOnboarded(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.postForm(constants.RouteSignup, url.Values{"email": {"kim@example.com"}, "password": {"secret123"}})

	resp := b.get(constants.RouteStripeExpress)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, constants.RouteSignup, resp.Header.Get("Location"))
}

func TestPayoutPaysAvailableBalance(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	env.signupAndLink(t, b, "kim@example.com", "acct_kim")
	env.twin.SetBalance("acct_kim", 4200, "usd")

	resp := b.postForm(constants.RouteStripePayout, url.Values{})
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, constants.RouteDashboard, resp.Header.Get("Location"))

	payouts := env.twin.Payouts("acct_kim")
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(4200), payouts[0].Amount)

	body := decodeJSON(t, b.get(constants.RouteDashboard))
	assert.EqualValues(t, 0, body["balance"].(map[string]interface{})["amount"])
}

func TestPayoutWithEmptyBalanceIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	env.signupAndLink(t, b, "kim@example.com", "acct_kim")

	resp := b.postForm(constants.RouteStripePayout, url.Values{})
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Empty(t, env.twin.Payouts("acct_kim"))

	body := decodeJSON(t, b.get(constants.RouteDashboard))
	assert.Nil(t, body["error"])
}

func TestPayoutFailureIsFlashed(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	env.signupAndLink(t, b, "kim@example.com", "acct_kim")
	env.twin.SetBalance("acct_kim", 4200, "usd")
	env.twin.FailPayouts("instant_payouts_unsupported", "Instant payouts are not supported.")

	resp := b.postForm(constants.RouteStripePayout, url.Values{})
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, constants.RouteDashboard, resp.Header.Get("Location"))

	body := decodeJSON(t, b.get(constants.RouteDashboard))
	assert.Contains(t, body["error"], "Instant payouts are not supported.")
}
