package processor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/form"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/env"
)

const defaultAuthorizeURL = "https://connect.stripe.com/express/oauth/authorize"

// ErrNotConfigured is returned for API calls made without a secret key.
var ErrNotConfigured = errors.New("STRIPE_SECRET_KEY is not configured")

// Config selects credentials and endpoints. Empty URLs fall back to the
// public Stripe hosts.
type Config struct {
	SecretKey      string
	ClientID       string
	RedirectURI    string
	AuthorizeURL   string
	APIBaseURL     string
	ConnectBaseURL string
	// ChargeSource charges a fixed payment source instead of the brand's
	// customer, e.g. "tok_visa" in test mode.
	ChargeSource string
	HTTPClient   *http.Client
}

// Client talks to the Stripe REST API and the Connect OAuth endpoints
// through stripe-go.
type Client struct {
	SecretKey    string
	ClientID     string
	RedirectURI  string
	AuthorizeURL string
	ChargeSource string

	api *client.API
}

// UserPrefill pre-populates the Express onboarding form.
type UserPrefill struct {
	FirstName string
	LastName  string
	Email     string
}

type OAuthToken struct {
	StripeUserID     string
	StripePublishKey string
	Scope            string
	Livemode         bool
}

type Customer struct {
	ID          string
	Email       string
	Description string
}

type BalanceAmount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Balance struct {
	Available []BalanceAmount `json:"available"`
	Pending   []BalanceAmount `json:"pending"`
}

// FirstAvailable returns the first available balance entry, or a zero
// amount when the account has none.
func (b *Balance) FirstAvailable() BalanceAmount {
	if b == nil || len(b.Available) == 0 {
		return BalanceAmount{}
	}
	return b.Available[0]
}

type ChargeParams struct {
	Amount      int64
	Currency    string
	Customer    string
	Source      string
	Destination string
	Description string
	Metadata    map[string]string
}

type Charge struct {
	ID          string
	Amount      int64
	Currency    string
	Status      string
	Paid        bool
	Transfer    string
	Description string
	Metadata    map[string]string
}

type PayoutParams struct {
	Amount              int64
	Currency            string
	StatementDescriptor string
	Method              string
}

type Payout struct {
	ID                  string
	Amount              int64
	Currency            string
	Status              string
	Method              string
	StatementDescriptor string
}

type LoginLink struct {
	URL string
}

// NewClient builds a client with its own stripe-go backends. Network
// retries are disabled: a failed call is reported, never repeated.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	backend := func(typ stripe.SupportedBackend, url string) stripe.Backend {
		bc := &stripe.BackendConfig{
			HTTPClient:        httpClient,
			LeveledLogger:     stripeLogger{},
			MaxNetworkRetries: stripe.Int64(0),
		}
		if url = strings.TrimSpace(url); url != "" {
			bc.URL = stripe.String(url)
		}
		return stripe.GetBackendWithConfig(typ, bc)
	}

	authorizeURL := strings.TrimSpace(cfg.AuthorizeURL)
	if authorizeURL == "" {
		authorizeURL = defaultAuthorizeURL
	}
	key := strings.TrimSpace(cfg.SecretKey)
	return &Client{
		SecretKey:    key,
		ClientID:     strings.TrimSpace(cfg.ClientID),
		RedirectURI:  strings.TrimSpace(cfg.RedirectURI),
		AuthorizeURL: authorizeURL,
		ChargeSource: strings.TrimSpace(cfg.ChargeSource),
		api: client.New(key, &stripe.Backends{
			API:     backend(stripe.APIBackend, cfg.APIBaseURL),
			Connect: backend(stripe.ConnectBackend, cfg.ConnectBaseURL),
			Uploads: backend(stripe.UploadsBackend, ""),
		}),
	}
}

func NewClientFromEnv() *Client {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	redirectURI := strings.TrimSpace(env.GetEnv("STRIPE_REDIRECT_URI", ""))
	if redirectURI == "" && base != "" {
		redirectURI = base + "/account/stripe/token"
	}

	return NewClient(Config{
		SecretKey:      env.GetEnv("STRIPE_SECRET_KEY", ""),
		ClientID:       env.GetEnv("STRIPE_CLIENT_ID", ""),
		RedirectURI:    redirectURI,
		AuthorizeURL:   env.GetEnv("STRIPE_AUTHORIZE_URI", defaultAuthorizeURL),
		APIBaseURL:     env.GetEnv("STRIPE_API_BASE_URL", stripe.APIURL),
		ConnectBaseURL: env.GetEnv("STRIPE_CONNECT_BASE_URL", stripe.ConnectURL),
		ChargeSource:   env.GetEnv("STRIPE_CHARGE_SOURCE", ""),
	})
}

// AuthorizeURLWithState builds the Express onboarding URL. Empty prefill
// values are left out of the query.
func (c *Client) AuthorizeURLWithState(state string, prefill UserPrefill) (string, error) {
	if c.ClientID == "" {
		return "", errors.New("STRIPE_CLIENT_ID is not configured")
	}
	params := &stripe.AuthorizeURLParams{
		ClientID: stripe.String(c.ClientID),
		State:    stripe.String(state),
		Express:  stripe.Bool(true),
	}
	if c.RedirectURI != "" {
		params.RedirectURI = stripe.String(c.RedirectURI)
	}
	user := &stripe.OAuthStripeUserParams{
		FirstName: optional(prefill.FirstName),
		LastName:  optional(prefill.LastName),
		Email:     optional(prefill.Email),
	}
	if user.FirstName != nil || user.LastName != nil || user.Email != nil {
		params.StripeUser = user
	}

	values := &form.Values{}
	form.AppendTo(values, params)
	return c.AuthorizeURL + "?" + values.Encode(), nil
}

// ExchangeCode trades an authorization code for the connected account id.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*OAuthToken, error) {
	if c.ClientID == "" || c.SecretKey == "" {
		return nil, errors.New("STRIPE_CLIENT_ID/STRIPE_SECRET_KEY are not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth code is required")
	}

	params := &stripe.OAuthTokenParams{
		GrantType:    stripe.String("authorization_code"),
		Code:         stripe.String(strings.TrimSpace(code)),
		ClientSecret: stripe.String(c.SecretKey),
	}
	params.Context = ctx
	tok, err := c.api.OAuth.New(params)
	if err != nil {
		return nil, toError(err)
	}
	if strings.TrimSpace(tok.StripeUserID) == "" {
		return nil, &Error{Type: "oauth_error", Message: "token exchange returned empty stripe_user_id"}
	}
	return &OAuthToken{
		StripeUserID:     tok.StripeUserID,
		StripePublishKey: tok.StripePublishableKey,
		Scope:            string(tok.Scope),
		Livemode:         tok.Livemode,
	}, nil
}

// CreateCustomer creates a platform customer that holds a brand's payment sources.
func (c *Client) CreateCustomer(ctx context.Context, email, description string) (*Customer, error) {
	if c.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.CustomerParams{
		Email:       optional(email),
		Description: optional(description),
	}
	params.Context = ctx
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return nil, toError(err)
	}
	return &Customer{ID: cus.ID, Email: cus.Email, Description: cus.Description}, nil
}

// RetrieveBalance returns the balance of a connected account.
func (c *Client) RetrieveBalance(ctx context.Context, accountID string) (*Balance, error) {
	if c.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.BalanceParams{}
	params.Context = ctx
	params.SetStripeAccount(accountID)
	bal, err := c.api.Balance.Get(params)
	if err != nil {
		return nil, toError(err)
	}

	out := &Balance{}
	for _, a := range bal.Available {
		out.Available = append(out.Available, BalanceAmount{Amount: a.Amount, Currency: string(a.Currency)})
	}
	for _, a := range bal.Pending {
		out.Pending = append(out.Pending, BalanceAmount{Amount: a.Amount, Currency: string(a.Currency)})
	}
	return out, nil
}

// CreateCharge charges the platform and routes the funds to the destination account.
func (c *Client) CreateCharge(ctx context.Context, p ChargeParams) (*Charge, error) {
	if c.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(p.Amount),
		Currency:    stripe.String(p.Currency),
		Description: optional(p.Description),
	}
	params.Context = ctx
	if dest := strings.TrimSpace(p.Destination); dest != "" {
		params.TransferData = &stripe.ChargeTransferDataParams{Destination: stripe.String(dest)}
	}

	source := p.Source
	if source == "" {
		source = c.ChargeSource
	}
	if source != "" {
		params.Source = &stripe.PaymentSourceSourceParams{Token: stripe.String(source)}
	} else {
		params.Customer = optional(p.Customer)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	ch, err := c.api.Charges.New(params)
	if err != nil {
		return nil, toError(err)
	}
	out := &Charge{
		ID:          ch.ID,
		Amount:      ch.Amount,
		Currency:    string(ch.Currency),
		Status:      string(ch.Status),
		Paid:        ch.Paid,
		Description: ch.Description,
		Metadata:    ch.Metadata,
	}
	if ch.Transfer != nil {
		out.Transfer = ch.Transfer.ID
	}
	return out, nil
}

// CreatePayout pays out the connected account's balance to its bank account or card.
func (c *Client) CreatePayout(ctx context.Context, accountID string, p PayoutParams) (*Payout, error) {
	if c.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.PayoutParams{
		Amount:              stripe.Int64(p.Amount),
		Currency:            stripe.String(p.Currency),
		StatementDescriptor: optional(p.StatementDescriptor),
		Method:              optional(p.Method),
	}
	params.Context = ctx
	params.SetStripeAccount(accountID)
	po, err := c.api.Payouts.New(params)
	if err != nil {
		return nil, toError(err)
	}
	return &Payout{
		ID:                  po.ID,
		Amount:              po.Amount,
		Currency:            string(po.Currency),
		Status:              string(po.Status),
		Method:              string(po.Method),
		StatementDescriptor: po.StatementDescriptor,
	}, nil
}

// CreateLoginLink returns a single-use link into the Express dashboard.
func (c *Client) CreateLoginLink(ctx context.Context, accountID string) (*LoginLink, error) {
	if c.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("account id is required")
	}
	params := &stripe.LoginLinkParams{Account: stripe.String(accountID)}
	params.Context = ctx
	link, err := c.api.LoginLinks.New(params)
	if err != nil {
		return nil, toError(err)
	}
	return &LoginLink{URL: link.URL}, nil
}

func optional(v string) *string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	return stripe.String(v)
}

// stripeLogger routes stripe-go's request logging into fiber's logger.
type stripeLogger struct{}

func (stripeLogger) Debugf(format string, v ...interface{}) {
	fiberlog.Debugf("[Stripe] "+format, v...)
}

// Infof is demoted: stripe-go logs every request at info level.
func (stripeLogger) Infof(format string, v ...interface{}) {
	fiberlog.Debugf("[Stripe] "+format, v...)
}

func (stripeLogger) Warnf(format string, v ...interface{}) {
	fiberlog.Warnf("[Stripe] "+format, v...)
}

func (stripeLogger) Errorf(format string, v ...interface{}) {
	fiberlog.Errorf("[Stripe] "+format, v...)
}
