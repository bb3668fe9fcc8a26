package constants

// Route constants shared by the router, controllers and redirects
const (
	RouteSignup        = "/ambassadors/signup"
	RouteLogin         = "/ambassadors/login"
	RouteLogout        = "/ambassadors/logout"
	RouteDashboard     = "/ambassadors/dashboard"
	RouteTestContract  = "/ambassadors/contracts"
	RouteAccept        = "/ambassadors/accept_contract"
	RouteStripeAuth    = "/account/stripe/authorize"
	RouteStripeToken   = "/account/stripe/token"
	RouteStripeExpress = "/account/stripe/dashboard"
	RouteStripePayout  = "/account/stripe/payout"
	RouteStripeWebhook = "/webhooks/stripe"
	RouteMetrics       = "/metrics"
	RouteMonitor       = "/monitor"
	RouteAPIDocs       = "/docs/api/"
)
