package repository

import (
	"context"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"gorm.io/gorm"
)

// ambassadorRepository implements the AmbassadorRepository interface
type ambassadorRepository struct {
	db *gorm.DB
}

// NewAmbassadorRepository creates a new ambassador repository instance
func NewAmbassadorRepository(db *gorm.DB) AmbassadorRepository {
	return &ambassadorRepository{db: db}
}

// Create creates a new ambassador in the database
func (r *ambassadorRepository) Create(ctx context.Context, ambassador *models.Ambassador) error {
	return r.db.WithContext(ctx).Create(ambassador).Error
}

// GetByID retrieves an ambassador by their ID
func (r *ambassadorRepository) GetByID(ctx context.Context, id uint) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	err := r.db.WithContext(ctx).First(&ambassador, id).Error
	if err != nil {
		return nil, err
	}
	return &ambassador, nil
}

// GetByEmail retrieves an ambassador by the exact stored email
func (r *ambassadorRepository) GetByEmail(ctx context.Context, email string) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	err := r.db.WithContext(ctx).Where("email = ?", email).Take(&ambassador).Error
	if err != nil {
		return nil, err
	}
	return &ambassador, nil
}

func (r *ambassadorRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Ambassador{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// Update saves all ambassador fields
func (r *ambassadorRepository) Update(ctx context.Context, ambassador *models.Ambassador) error {
	return r.db.WithContext(ctx).Save(ambassador).Error
}

// SetPayoutDestination writes only the linked Stripe account and onboarding step.
func (r *ambassadorRepository) SetPayoutDestination(ctx context.Context, id uint, accountID string, step models.OnboardingStep) error {
	tx := r.db.WithContext(ctx).Model(&models.Ambassador{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stripe_account_id": accountID,
		"onboarding_step":   step,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FirstOnboarded returns the oldest ambassador with a linked payout account
func (r *ambassadorRepository) FirstOnboarded(ctx context.Context) (*models.Ambassador, error) {
	return r.onboarded(ctx, "created_at ASC, id ASC")
}

// LatestOnboarded returns the newest ambassador with a linked payout account
func (r *ambassadorRepository) LatestOnboarded(ctx context.Context) (*models.Ambassador, error) {
	return r.onboarded(ctx, "created_at DESC, id DESC")
}

func (r *ambassadorRepository) onboarded(ctx context.Context, order string) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	err := r.db.WithContext(ctx).
		Where("stripe_account_id IS NOT NULL AND stripe_account_id <> ''").
		Order(order).
		Take(&ambassador).Error
	if err != nil {
		return nil, err
	}
	return &ambassador, nil
}

// Count returns the total number of ambassadors
func (r *ambassadorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Ambassador{}).Count(&count).Error
	return count, err
}
