package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
)

// ContractStatus tracks settlement progress. A contract only moves
// pending -> settling -> settled; a failed charge moves it back to pending.
type ContractStatus string

const (
	ContractStatusPending  ContractStatus = "pending"
	ContractStatusSettling ContractStatus = "settling"
	ContractStatusSettled  ContractStatus = "settled"
)

const DefaultCurrency = "usd"

// Contract is a unit of promotion work paid by a brand to an ambassador.
type Contract struct {
	ID                    uint           `gorm:"primaryKey" json:"-"`
	UUID                  string         `gorm:"type:char(36);uniqueIndex;not null" json:"id"`
	AmbassadorID          uint           `gorm:"not null;index:idx_contracts_ambassador_created,priority:1" json:"ambassador_id" validate:"required"`
	Ambassador            *Ambassador    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"ambassador,omitempty"`
	BrandID               uint           `gorm:"not null;index" json:"brand_id" validate:"required"`
	Brand                 *Brand         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"brand,omitempty"`
	PostLink              string         `gorm:"type:varchar(500);not null" json:"post_link" validate:"required,url,max=500"`
	Amount                int64          `gorm:"not null" json:"amount" validate:"gt=0"`
	Currency              string         `gorm:"type:varchar(3);not null;default:'usd'" json:"currency" validate:"required,len=3,lowercase"`
	Accepted              bool           `gorm:"not null;default:false" json:"accepted"`
	Status                ContractStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status" validate:"oneof=pending settling settled"`
	StripePaymentIntentID string         `gorm:"type:varchar(191);default:''" json:"stripe_payment_intent_id,omitempty"`
	StripeTransferID      string         `gorm:"type:varchar(191);default:''" json:"stripe_transfer_id,omitempty"`
	LastError             string         `gorm:"type:text" json:"last_error,omitempty"`
	SettledAt             *time.Time     `gorm:"type:timestamp;default:null" json:"settled_at,omitempty"`
	CreatedAt             time.Time      `gorm:"autoCreateTime;index:idx_contracts_ambassador_created,priority:2" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewContract builds a pending contract. Nothing is charged until it is accepted.
func NewContract(ambassadorID, brandID uint, postLink string, amount int64, currency string) (*Contract, error) {
	c := &Contract{
		UUID:         uuid.NewString(),
		AmbassadorID: ambassadorID,
		BrandID:      brandID,
		PostLink:     strings.TrimSpace(postLink),
		Amount:       amount,
		Currency:     strings.ToLower(strings.TrimSpace(currency)),
		Status:       ContractStatusPending,
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Contract) Validate() error {
	return apperror.FromValidator(validate.Struct(c))
}

func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = ContractStatusPending
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	return nil
}

func (c *Contract) IsPending() bool {
	return c.Status == ContractStatusPending
}

func (c *Contract) IsSettled() bool {
	return c.Status == ContractStatusSettled
}

// TotalAmount sums contract amounts in minor units.
func TotalAmount(contracts []Contract) int64 {
	var total int64
	for _, c := range contracts {
		total += c.Amount
	}
	return total
}
