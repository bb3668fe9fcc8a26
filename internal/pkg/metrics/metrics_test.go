package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCounters(t *testing.T) {
	before := testutil.ToFloat64(settlementsTotal.WithLabelValues(SettlementSettled))
	ObserveSettlement(SettlementSettled)
	assert.Equal(t, before+1, testutil.ToFloat64(settlementsTotal.WithLabelValues(SettlementSettled)))

	beforeAmount := testutil.ToFloat64(settledAmountTotal.WithLabelValues("usd"))
	ObserveSettledAmount("usd", 2500)
	assert.Equal(t, beforeAmount+2500, testutil.ToFloat64(settledAmountTotal.WithLabelValues("usd")))

	beforePayout := testutil.ToFloat64(payoutsTotal.WithLabelValues(PayoutSkipped))
	ObservePayout(PayoutSkipped)
	assert.Equal(t, beforePayout+1, testutil.ToFloat64(payoutsTotal.WithLabelValues(PayoutSkipped)))
}

func TestMiddlewareAndHandler(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping", "200")), 1.0)

	ObserveSettlement(SettlementRejected)
	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rocketrides_settlements_total")
}
