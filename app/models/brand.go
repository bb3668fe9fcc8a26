package models

import (
	"strings"
	"time"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
)

// Brand is the payer of a contract. StripeCustomerID holds its payment sources.
type Brand struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ClientEmail      string    `gorm:"uniqueIndex;type:varchar(200);not null" json:"client_email" validate:"required,email,max=200"`
	TribeEmail       string    `gorm:"type:varchar(200);not null;index" json:"tribe_email" validate:"required,email,max=200"`
	Name             string    `gorm:"type:varchar(150);default:''" json:"name" validate:"max=150"`
	StripeCustomerID string    `gorm:"type:varchar(191);default:''" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Brand) Validate() error {
	b.ClientEmail = strings.TrimSpace(b.ClientEmail)
	b.TribeEmail = strings.TrimSpace(b.TribeEmail)
	return apperror.FromValidator(validate.Struct(b))
}

func (b *Brand) DisplayName() string {
	return b.Name
}

func (b *Brand) HasCustomer() bool {
	return b.StripeCustomerID != ""
}

// DefaultBrands are inserted when the platform has no brands yet so that
// contracts can be simulated.
func DefaultBrands() []Brand {
	return []Brand{
		{ClientEmail: "bozotheclient@abh.com", TribeEmail: "bozo@tribedynamics.com", Name: "Anastasia Beverley Hills"},
		{ClientEmail: "gonzotheclient@gucci.com", TribeEmail: "gonzo@tribedynamics.com", Name: "Gucci (US)"},
		{ClientEmail: "gonzotheclient@gucciuk.com", TribeEmail: "gonzo@tribedynamics.com", Name: "Gucci (UK)"},
	}
}
