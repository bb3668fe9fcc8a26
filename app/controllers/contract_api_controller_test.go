package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
)

func TestCreateContractByReferences(t *testing.T) {
	env := newTestEnv(t)
	env.brand(t)
	b := env.browser(t)
	env.signupAndLink(t, b, "kim@example.com", "acct_kim")

	resp := b.postJSON("/api/v1/contracts", fiber.Map{
		"brandName":       "Brand",
		"ambassadorEmail": "kim@example.com",
		"amount":          2500,
		"postLink":        "https://www.instagram.com/p/abc/",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.EqualValues(t, 2500, body["amount"])
	assert.Equal(t, string(models.ContractStatusPending), body["status"])
	assert.Equal(t, false, body["accepted"])
	assert.NotEmpty(t, body["id"])
	assert.Empty(t, env.twin.Charges())
}

func TestCreateContractFallsBackToDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.brand(t)
	b := env.browser(t)
	env.signupAndLink(t, b, "first@example.com", "acct_first")
	env.signupAndLink(t, env.browser(t), "second@example.com", "acct_second")

	resp := b.postJSON("/api/v1/contracts", fiber.Map{
		"amount":   1500,
		"postLink": "https://www.instagram.com/p/abc/",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeJSON(t, resp)

	first, err := env.repos.Ambassador.GetByEmail(context.Background(), "first@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, first.ID, body["ambassador_id"])
}

func TestCreateContractErrors(t *testing.T) {
	env := newTestEnv(t)
	env.brand(t)
	b := env.browser(t)
	env.signupAndLink(t, b, "kim@example.com", "acct_kim")

	resp := b.postJSON("/api/v1/contracts", fiber.Map{
		"brandName": "Nobody",
		"amount":    1500,
		"postLink":  "https://www.instagram.com/p/abc/",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = b.postJSON("/api/v1/contracts", fiber.Map{
		"ambassadorEmail": "nobody@example.com",
		"amount":          1500,
		"postLink":        "https://www.instagram.com/p/abc/",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = b.postJSON("/api/v1/contracts", fiber.Map{
		"amount":   0,
		"postLink": "https://www.instagram.com/p/abc/",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decodeJSON(t, resp)["error"], "amount")

	resp = b.postJSON("/api/v1/contracts", fiber.Map{
		"amount":   1500,
		"postLink": "not a link",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAcceptContractAPI(t *testing.T) {
	env := newTestEnv(t)
	env.brand(t)
	b := env.browser(t)
	env.signupAndLink(t, b, "kim@example.com", "acct_kim")

	resp := b.postJSON("/api/v1/contracts", fiber.Map{"amount": 3000, "postLink": "https://www.instagram.com/p/abc/"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := decodeJSON(t, resp)["id"].(string)

	anon := env.browser(t)
	resp = anon.postJSON("/api/v1/contracts/"+id+"/accept", fiber.Map{})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	env.twin.FailCharges("card_declined", "Your card was declined.")
	resp = b.postJSON("/api/v1/contracts/"+id+"/accept", fiber.Map{})
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Contains(t, decodeJSON(t, resp)["error"], "declined")

	env.twin.FailCharges("", "")
	resp = b.postJSON("/api/v1/contracts/"+id+"/accept", fiber.Map{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, string(models.ContractStatusSettled), body["status"])
	assert.NotEmpty(t, body["stripe_transfer_id"])

	resp = b.postJSON("/api/v1/contracts/"+id+"/accept", fiber.Map{})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = b.postJSON("/api/v1/contracts/00000000-0000-0000-0000-000000000000/accept", fiber.Map{})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Len(t, env.twin.Charges(), 1)
}

func TestStripeWebhookEndpoint(t *testing.T) {
	env := newTestEnv(t)
	body := `{"id":"evt_1","type":"payout.paid","account":"acct_1","data":{"object":{"id":"po_1","object":"payout"}}}`

	send := func(header string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(processor.SignatureHeader, header)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := send(processor.SignPayload([]byte(body), "whsec_wrong", time.Now()))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body = strings.Replace(body, "evt_1", "evt_2", 1)
	resp = send(processor.SignPayload([]byte(body), testWebhookSecret, time.Now()))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "processed", decodeJSON(t, resp)["outcome"])

	resp = send(processor.SignPayload([]byte(body), testWebhookSecret, time.Now()))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplicate", decodeJSON(t, resp)["outcome"])

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader("{"))
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
