package repository

import (
	"context"
	"time"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"gorm.io/gorm"
)

// AmbassadorRepository defines the interface for ambassador-related database operations
type AmbassadorRepository interface {
	Create(ctx context.Context, ambassador *models.Ambassador) error
	GetByID(ctx context.Context, id uint) (*models.Ambassador, error)
	GetByEmail(ctx context.Context, email string) (*models.Ambassador, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, ambassador *models.Ambassador) error
	SetPayoutDestination(ctx context.Context, id uint, accountID string, step models.OnboardingStep) error
	FirstOnboarded(ctx context.Context) (*models.Ambassador, error)
	LatestOnboarded(ctx context.Context) (*models.Ambassador, error)
	Count(ctx context.Context) (int64, error)
}

// BrandRepository defines the interface for brand-related database operations
type BrandRepository interface {
	Create(ctx context.Context, brand *models.Brand) error
	GetByID(ctx context.Context, id uint) (*models.Brand, error)
	GetByName(ctx context.Context, name string) (*models.Brand, error)
	GetByClientEmail(ctx context.Context, email string) (*models.Brand, error)
	GetAt(ctx context.Context, offset int) (*models.Brand, error)
	Latest(ctx context.Context) (*models.Brand, error)
	SetCustomerID(ctx context.Context, id uint, customerID string) error
	Count(ctx context.Context) (int64, error)
}

// ContractRepository defines the interface for contract-related database operations
type ContractRepository interface {
	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id uint) (*models.Contract, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Contract, error)
	ListByAmbassadorSince(ctx context.Context, ambassadorID uint, since time.Time) ([]models.Contract, error)
	ListByBrand(ctx context.Context, brandID uint, offset, limit int) ([]models.Contract, error)
	// TransitionStatus moves a contract from one status to another only if it is
	// still in the expected status. It reports whether this call won the transition.
	TransitionStatus(ctx context.Context, id uint, from, to models.ContractStatus) (bool, error)
	MarkSettled(ctx context.Context, id uint, chargeID, transferID string, settledAt time.Time) error
	MarkFailed(ctx context.Context, id uint, reason string) error
	CountByStatus(ctx context.Context, status models.ContractStatus) (int64, error)
}

// ProcessorEventRepository persists payment processor webhook events
type ProcessorEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.ProcessorEvent) (bool, *models.ProcessorEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Ambassador     AmbassadorRepository
	Brand          BrandRepository
	Contract       ContractRepository
	ProcessorEvent ProcessorEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Ambassador:     NewAmbassadorRepository(db),
		Brand:          NewBrandRepository(db),
		Contract:       NewContractRepository(db),
		ProcessorEvent: NewProcessorEventRepository(db),
	}
}
