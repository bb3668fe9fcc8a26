// Package processortest serves an in-memory Stripe-compatible API for tests.
package processortest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
)

const (
	TestSecretKey = "sk_test_rocketrides"
	TestClientID  = "ca_test_rocketrides"
)

// RecordedCharge is a charge as the twin received it.
type RecordedCharge struct {
	processor.Charge
	Customer    string
	Source      string
	Destination string
}

type failure struct {
	status  int
	errType string
	code    string
	message string
}

// Server is a Stripe twin. All state is guarded by mu.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	seq         int
	codes       map[string]string
	customers   map[string]processor.Customer
	balances    map[string][]processor.BalanceAmount
	charges     []RecordedCharge
	payouts     map[string][]processor.Payout
	loginLinks  map[string]int
	tokenCalls  int
	chargeFail  *failure
	payoutFail  *failure
	chargeDelay time.Duration
}

// NewServer starts a twin that is closed when the test finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		codes:      make(map[string]string),
		customers:  make(map[string]processor.Customer),
		balances:   make(map[string][]processor.BalanceAmount),
		payouts:    make(map[string][]processor.Payout),
		loginLinks: make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// ProcessorClient returns a client pointed at the twin.
func (s *Server) ProcessorClient() *processor.Client {
	return processor.NewClient(processor.Config{
		SecretKey:      TestSecretKey,
		ClientID:       TestClientID,
		RedirectURI:    "http://localhost/account/stripe/token",
		AuthorizeURL:   s.URL + "/express/oauth/authorize",
		APIBaseURL:     s.URL,
		ConnectBaseURL: s.URL,
		HTTPClient:     s.Client(),
	})
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/oauth/token", s.exchangeToken)
	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/customers", s.createCustomer)
		r.Get("/balance", s.getBalance)
		r.Post("/charges", s.createCharge)
		r.Post("/payouts", s.createPayout)
		r.Post("/accounts/{id}/login_links", s.createLoginLink)
	})
	return r
}

// AddAuthorizationCode makes code exchangeable for accountID.
func (s *Server) AddAuthorizationCode(code, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = accountID
}

// SetBalance replaces the available balance of a connected account.
func (s *Server) SetBalance(accountID string, amount int64, currency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[accountID] = []processor.BalanceAmount{{Amount: amount, Currency: currency}}
}

// FailCharges makes every following charge fail with a card error.
// An empty code clears the failure.
func (s *Server) FailCharges(code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == "" {
		s.chargeFail = nil
		return
	}
	s.chargeFail = &failure{status: http.StatusPaymentRequired, errType: "card_error", code: code, message: message}
}

// FailPayouts makes every following payout fail. An empty code clears the failure.
func (s *Server) FailPayouts(code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == "" {
		s.payoutFail = nil
		return
	}
	s.payoutFail = &failure{status: http.StatusBadRequest, errType: "invalid_request_error", code: code, message: message}
}

// SetChargeDelay slows charges down so callers can overlap.
func (s *Server) SetChargeDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chargeDelay = d
}

func (s *Server) Charges() []RecordedCharge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedCharge(nil), s.charges...)
}

func (s *Server) Payouts(accountID string) []processor.Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]processor.Payout(nil), s.payouts[accountID]...)
}

func (s *Server) Customers() []processor.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]processor.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	return out
}

func (s *Server) TokenExchanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenCalls
}

func (s *Server) LoginLinks(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginLinks[accountID]
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%06d", prefix, s.seq)
}

func (s *Server) exchangeToken(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.mu.Lock()
	s.tokenCalls++
	accountID, ok := s.codes[r.FormValue("code")]
	if ok {
		delete(s.codes, r.FormValue("code"))
	}
	s.mu.Unlock()

	if r.FormValue("client_secret") != TestSecretKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":             "invalid_client",
			"error_description": "No such application secret",
		})
		return
	}
	if r.FormValue("grant_type") != "authorization_code" || !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Authorization code does not exist: " + r.FormValue("code"),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stripe_user_id":         accountID,
		"stripe_publishable_key": "pk_test_" + accountID,
		"scope":                  "express",
		"livemode":               false,
		"token_type":             "bearer",
	})
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.mu.Lock()
	c := processor.Customer{
		ID:          s.nextID("cus"),
		Email:       r.FormValue("email"),
		Description: r.FormValue("description"),
	}
	s.customers[c.ID] = c
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          c.ID,
		"object":      "customer",
		"email":       c.Email,
		"description": c.Description,
	})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	accountID := r.Header.Get("Stripe-Account")
	s.mu.Lock()
	available := append([]processor.BalanceAmount{}, s.balances[accountID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"object":    "balance",
		"available": available,
		"pending":   []processor.BalanceAmount{},
	})
}

func (s *Server) createCharge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		stripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid", err.Error())
		return
	}
	amount, err := strconv.ParseInt(r.FormValue("amount"), 10, 64)
	if err != nil || amount <= 0 {
		stripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid_integer",
			"Invalid positive integer: "+r.FormValue("amount"))
		return
	}
	currency := r.FormValue("currency")
	if currency == "" {
		stripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_missing", "Missing required param: currency.")
		return
	}

	s.mu.Lock()
	delay := s.chargeDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if f := s.chargeFail; f != nil {
		stripeError(w, f.status, f.errType, f.code, f.message)
		return
	}
	customer := r.FormValue("customer")
	source := r.FormValue("source")
	if source == "" {
		if _, ok := s.customers[customer]; !ok {
			stripeError(w, http.StatusBadRequest, "invalid_request_error", "resource_missing",
				"No such customer: '"+customer+"'")
			return
		}
	}

	metadata := map[string]string{}
	for k, v := range r.PostForm {
		if strings.HasPrefix(k, "metadata[") && strings.HasSuffix(k, "]") && len(v) > 0 {
			metadata[strings.TrimSuffix(strings.TrimPrefix(k, "metadata["), "]")] = v[0]
		}
	}

	destination := r.FormValue("transfer_data[destination]")
	charge := processor.Charge{
		ID:          s.nextID("ch"),
		Amount:      amount,
		Currency:    currency,
		Status:      "succeeded",
		Paid:        true,
		Description: r.FormValue("description"),
		Metadata:    metadata,
	}
	if destination != "" {
		charge.Transfer = s.nextID("tr")
		s.credit(destination, currency, amount)
	}
	s.charges = append(s.charges, RecordedCharge{
		Charge:      charge,
		Customer:    customer,
		Source:      source,
		Destination: destination,
	})

	body := map[string]any{
		"id":          charge.ID,
		"object":      "charge",
		"amount":      charge.Amount,
		"currency":    charge.Currency,
		"status":      charge.Status,
		"paid":        charge.Paid,
		"description": charge.Description,
		"metadata":    charge.Metadata,
	}
	if charge.Transfer != "" {
		body["transfer"] = charge.Transfer
	}
	writeJSON(w, http.StatusOK, body)
}

// credit must be called with mu held.
func (s *Server) credit(accountID, currency string, amount int64) {
	entries := s.balances[accountID]
	for i := range entries {
		if entries[i].Currency == currency {
			entries[i].Amount += amount
			return
		}
	}
	s.balances[accountID] = append(entries, processor.BalanceAmount{Amount: amount, Currency: currency})
}

func (s *Server) createPayout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		stripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid", err.Error())
		return
	}
	amount, err := strconv.ParseInt(r.FormValue("amount"), 10, 64)
	if err != nil || amount <= 0 {
		stripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid_integer",
			"Invalid positive integer: "+r.FormValue("amount"))
		return
	}
	currency := r.FormValue("currency")
	accountID := r.Header.Get("Stripe-Account")

	s.mu.Lock()
	defer s.mu.Unlock()

	if f := s.payoutFail; f != nil {
		stripeError(w, f.status, f.errType, f.code, f.message)
		return
	}
	if !s.debit(accountID, currency, amount) {
		stripeError(w, http.StatusBadRequest, "invalid_request_error", "balance_insufficient",
			"You have insufficient funds in your Stripe account.")
		return
	}

	p := processor.Payout{
		ID:                  s.nextID("po"),
		Amount:              amount,
		Currency:            currency,
		Status:              "pending",
		Method:              "standard",
		StatementDescriptor: r.FormValue("statement_descriptor"),
	}
	if m := r.FormValue("method"); m != "" {
		p.Method = m
	}
	s.payouts[accountID] = append(s.payouts[accountID], p)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                   p.ID,
		"object":               "payout",
		"amount":               p.Amount,
		"currency":             p.Currency,
		"status":               p.Status,
		"method":               p.Method,
		"statement_descriptor": p.StatementDescriptor,
	})
}

// debit must be called with mu held.
func (s *Server) debit(accountID, currency string, amount int64) bool {
	entries := s.balances[accountID]
	for i := range entries {
		if entries[i].Currency == currency && entries[i].Amount >= amount {
			entries[i].Amount -= amount
			return true
		}
	}
	return false
}

func (s *Server) createLoginLink(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if !strings.HasPrefix(accountID, "acct_") {
		stripeError(w, http.StatusNotFound, "invalid_request_error", "resource_missing",
			"No such account: '"+accountID+"'")
		return
	}
	s.mu.Lock()
	s.loginLinks[accountID]++
	n := s.loginLinks[accountID]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "login_link",
		"url":    fmt.Sprintf("https://connect.stripe.com/express/%s/login%d", accountID, n),
	})
}

func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if key != TestSecretKey {
			stripeError(w, http.StatusUnauthorized, "invalid_request_error", "api_key_required",
				"Invalid API Key provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func stripeError(w http.ResponseWriter, status int, errType, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"type":    errType,
			"code":    code,
			"message": message,
		},
	})
}
