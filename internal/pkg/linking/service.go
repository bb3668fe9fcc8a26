// Package linking binds an ambassador to a Stripe Express account through
// the OAuth redirect round trip. The state token kept in the session is the
// only CSRF defense, so it is random, compared exactly and used once.
package linking

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/metrics"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
)

const (
	StateSessionKey = "stripe_oauth_state"
	stateSize       = 24
	accountTabPath  = "#/account"
)

// StateStore is the part of a session the handshake needs. A fiber
// *session.Session satisfies it; the caller saves the session.
type StateStore interface {
	Get(key string) interface{}
	Set(key string, val interface{})
	Delete(key string)
}

type Processor interface {
	AuthorizeURLWithState(state string, prefill processor.UserPrefill) (string, error)
	ExchangeCode(ctx context.Context, code string) (*processor.OAuthToken, error)
	CreateLoginLink(ctx context.Context, accountID string) (*processor.LoginLink, error)
}

// Result of a completed handshake. ShowBanner asks the caller to show the
// onboarding-complete banner on the next dashboard view only.
type Result struct {
	AccountID  string
	ShowBanner bool
}

type Service struct {
	ambassadors repository.AmbassadorRepository
	proc        Processor
	newState    func() (string, error)
}

func NewService(ambassadors repository.AmbassadorRepository, proc Processor) *Service {
	return &Service{
		ambassadors: ambassadors,
		proc:        proc,
		newState:    func() (string, error) { return generateState(stateSize) },
	}
}

// Start stores a fresh state token in the session and returns the Express
// onboarding URL prefilled with the ambassador's name and email.
func (s *Service) Start(sess StateStore, ambassador *models.Ambassador) (string, error) {
	state, err := s.newState()
	if err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	sess.Set(StateSessionKey, state)

	url, err := s.proc.AuthorizeURLWithState(state, processor.UserPrefill{
		FirstName: ambassador.FirstName,
		LastName:  ambassador.LastName,
		Email:     ambassador.Email,
	})
	if err != nil {
		sess.Delete(StateSessionKey)
		return "", err
	}
	metrics.ObserveAccountLink(metrics.LinkStarted)
	return url, nil
}

// Complete checks the returned state against the one stored by Start and
// exchanges the code for the connected account id. The stored state is
// consumed whether or not it matches.
func (s *Service) Complete(ctx context.Context, sess StateStore, ambassador *models.Ambassador, returnedState, code string) (*Result, error) {
	stored, _ := sess.Get(StateSessionKey).(string)
	sess.Delete(StateSessionKey)

	if stored == "" || returnedState != stored {
		metrics.ObserveAccountLink(metrics.LinkCsrfMismatch)
		fiberlog.Warnf("[Linking] state mismatch for ambassador %d", ambassador.ID)
		return nil, apperror.ErrCsrfMismatch
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.Invalid("code", "is required")
	}

	token, err := s.proc.ExchangeCode(ctx, code)
	if err != nil {
		metrics.ObserveAccountLink(metrics.LinkExchangeFailed)
		fiberlog.Errorf("[Linking] token exchange failed for ambassador %d: %v", ambassador.ID, err)
		return nil, err
	}

	// the exchange consumed the code, so record the account even if the client went away
	writeCtx := context.WithoutCancel(ctx)
	if err := s.ambassadors.SetPayoutDestination(writeCtx, ambassador.ID, token.StripeUserID, models.OnboardingComplete); err != nil {
		return nil, apperror.FromGorm(err, "ambassador")
	}
	accountID := token.StripeUserID
	ambassador.StripeAccountID = &accountID
	ambassador.OnboardingStep = models.OnboardingComplete

	metrics.ObserveAccountLink(metrics.LinkCompleted)
	fiberlog.Infof("[Linking] ambassador %d linked to %s", ambassador.ID, accountID)
	return &Result{AccountID: accountID, ShowBanner: true}, nil
}

// DashboardLink returns a login link into the ambassador's Express
// dashboard, opened on the account tab when accountTab is set.
func (s *Service) DashboardLink(ctx context.Context, ambassador *models.Ambassador, accountTab bool) (string, error) {
	if !ambassador.IsOnboarded() {
		return "", apperror.ErrNotOnboarded
	}
	link, err := s.proc.CreateLoginLink(ctx, ambassador.PayoutDestination())
	if err != nil {
		return "", err
	}
	if link.URL == "" {
		return "", errors.New("stripe returned an empty login link")
	}
	if accountTab {
		return link.URL + accountTabPath, nil
	}
	return link.URL, nil
}

func generateState(size int) (string, error) {
	if size < 16 {
		size = 16
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
