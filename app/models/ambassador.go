package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/credentials"
)

// OnboardingStep is the explicit signup state of an ambassador.
type OnboardingStep string

const (
	OnboardingAccount  OnboardingStep = "account"
	OnboardingProfile  OnboardingStep = "profile"
	OnboardingPayout   OnboardingStep = "payout"
	OnboardingComplete OnboardingStep = "complete"
)

const (
	MinPasswordLength = 6
	// bcrypt only reads the first 72 bytes
	MaxPasswordLength = 72
)

var onboardingOrder = map[OnboardingStep]int{
	OnboardingAccount:  0,
	OnboardingProfile:  1,
	OnboardingPayout:   2,
	OnboardingComplete: 3,
}

var validate = validator.New()

// Ambassador is the payee of a contract.
type Ambassador struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;type:varchar(200);not null" json:"email" validate:"required,email,max=200"`
	Password        string         `gorm:"type:text;not null" json:"-"`
	FirstName       string         `gorm:"type:varchar(100);default:''" json:"first_name" validate:"max=100"`
	LastName        string         `gorm:"type:varchar(100);default:''" json:"last_name" validate:"max=100"`
	OnboardingStep  OnboardingStep `gorm:"type:varchar(20);not null;default:'account'" json:"onboarding_step" validate:"omitempty,oneof=account profile payout complete"`
	StripeAccountID *string        `gorm:"type:varchar(191);default:null;index" json:"stripe_account_id,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	plainPassword string `gorm:"-"`
}

// NewAmbassador builds an ambassador in the profile step with a staged password.
func NewAmbassador(email, password string) (*Ambassador, error) {
	a := &Ambassador{
		Email:          strings.TrimSpace(email),
		OnboardingStep: OnboardingAccount,
	}
	if err := a.SetPassword(password); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Ambassador) Validate() error {
	if err := validate.Struct(a); err != nil {
		return apperror.FromValidator(err)
	}
	if a.Password == "" && a.plainPassword == "" {
		return apperror.Invalid("password", "is required")
	}
	return nil
}

// SetPassword stages a new plaintext password; it is hashed once on the next save.
func (a *Ambassador) SetPassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return apperror.Invalid("password", fmt.Sprintf("must be at most %d bytes", MaxPasswordLength))
	}
	a.plainPassword = password
	return nil
}

// PasswordChanged reports whether a plaintext password is waiting to be hashed.
func (a *Ambassador) PasswordChanged() bool {
	return a.plainPassword != ""
}

// BeforeSave hashes a staged password. A stored hash is never rehashed.
func (a *Ambassador) BeforeSave(tx *gorm.DB) error {
	plain := a.plainPassword
	if plain == "" && a.Password != "" && !credentials.IsHash(a.Password) {
		plain = a.Password
	}
	if plain == "" {
		return nil
	}
	hash, err := credentials.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.Password = hash
	a.plainPassword = ""
	return nil
}

// CheckPassword verifies the given password against the stored hash.
func (a *Ambassador) CheckPassword(password string) bool {
	return credentials.Verify(password, a.Password)
}

func (a *Ambassador) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func (a *Ambassador) HasProfile() bool {
	return strings.TrimSpace(a.FirstName) != "" && strings.TrimSpace(a.LastName) != ""
}

// PayoutDestination returns the linked Stripe account id, or "" when not onboarded.
func (a *Ambassador) PayoutDestination() string {
	if a.StripeAccountID == nil {
		return ""
	}
	return *a.StripeAccountID
}

func (a *Ambassador) IsOnboarded() bool {
	return a.PayoutDestination() != ""
}

// Step returns the current onboarding step, treating an unset value as account.
func (a *Ambassador) Step() OnboardingStep {
	if a.OnboardingStep == "" {
		return OnboardingAccount
	}
	return a.OnboardingStep
}

// Advance moves the onboarding step forward. Moving backwards is rejected,
// re-applying the current step is a no-op.
func (a *Ambassador) Advance(to OnboardingStep) error {
	target, ok := onboardingOrder[to]
	if !ok {
		return apperror.Invalid("onboarding_step", "unknown step "+string(to))
	}
	if target < onboardingOrder[a.Step()] {
		return apperror.Invalid("onboarding_step", fmt.Sprintf("cannot move from %s back to %s", a.Step(), to))
	}
	a.OnboardingStep = to
	return nil
}
