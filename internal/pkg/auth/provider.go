// Package auth verifies ambassador credentials and binds the result to the
// fiber session. The credential check is an injected AuthProvider so other
// login strategies can replace the password check without touching handlers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/credentials"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthProvider resolves credentials to an ambassador.
type AuthProvider interface {
	Authenticate(ctx context.Context, email, password string) (*models.Ambassador, error)
}

// PasswordProvider checks an email/password pair against the stored bcrypt hash.
type PasswordProvider struct {
	ambassadors repository.AmbassadorRepository
}

func NewPasswordProvider(ambassadors repository.AmbassadorRepository) *PasswordProvider {
	return &PasswordProvider{ambassadors: ambassadors}
}

// dummyHash keeps unknown-email logins as slow as wrong-password logins.
var dummyHash, _ = credentials.Hash("rocket-rides-dummy-password")

func (p *PasswordProvider) Authenticate(ctx context.Context, email, password string) (*models.Ambassador, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	ambassador, err := p.ambassadors.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, apperror.ErrNotFound) {
		credentials.Verify(password, dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up ambassador: %w", err)
	}
	if !ambassador.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return ambassador, nil
}
