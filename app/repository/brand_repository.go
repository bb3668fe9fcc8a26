package repository

import (
	"context"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"gorm.io/gorm"
)

// brandRepository implements the BrandRepository interface
type brandRepository struct {
	db *gorm.DB
}

// NewBrandRepository creates a new brand repository instance
func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &brandRepository{db: db}
}

// Create creates a new brand in the database
func (r *brandRepository) Create(ctx context.Context, brand *models.Brand) error {
	return r.db.WithContext(ctx).Create(brand).Error
}

// GetByID retrieves a brand by its ID
func (r *brandRepository) GetByID(ctx context.Context, id uint) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).First(&brand, id).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// GetByName retrieves the oldest brand with the given display name
func (r *brandRepository) GetByName(ctx context.Context, name string) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).Where("name = ?", name).Order("id ASC").Take(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// GetByClientEmail retrieves a brand by its unique client email
func (r *brandRepository) GetByClientEmail(ctx context.Context, email string) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).Where("client_email = ?", email).Take(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// GetAt skips offset brands in primary key order and returns the next one
func (r *brandRepository) GetAt(ctx context.Context, offset int) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(1).Take(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// Latest returns the most recently created brand
func (r *brandRepository) Latest(ctx context.Context) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Take(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// SetCustomerID stores the Stripe customer holding the brand's payment sources
func (r *brandRepository) SetCustomerID(ctx context.Context, id uint, customerID string) error {
	tx := r.db.WithContext(ctx).Model(&models.Brand{}).Where("id = ?", id).Update("stripe_customer_id", customerID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count returns the total number of brands
func (r *brandRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Brand{}).Count(&count).Error
	return count, err
}
