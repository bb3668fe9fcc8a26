package repository

import (
	"context"
	"time"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// contractRepository implements the ContractRepository interface
type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository instance
func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

// Create inserts a contract without touching its associations
func (r *contractRepository) Create(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(contract).Error
}

// GetByID retrieves a contract by its ID
func (r *contractRepository) GetByID(ctx context.Context, id uint) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).Preload("Brand").First(&contract, id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetByUUID retrieves a contract by its public UUID
func (r *contractRepository) GetByUUID(ctx context.Context, uuid string) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).Preload("Brand").Where("uuid = ?", uuid).Take(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// ListByAmbassadorSince returns the ambassador's contracts created at or after since, newest first
func (r *contractRepository) ListByAmbassadorSince(ctx context.Context, ambassadorID uint, since time.Time) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Where("ambassador_id = ? AND created_at >= ?", ambassadorID, since).
		Order("created_at DESC, id DESC").
		Find(&contracts).Error
	return contracts, err
}

// ListByBrand returns a page of the brand's contracts, newest first
func (r *contractRepository) ListByBrand(ctx context.Context, brandID uint, offset, limit int) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.WithContext(ctx).
		Where("brand_id = ?", brandID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&contracts).Error
	return contracts, err
}

func (r *contractRepository) TransitionStatus(ctx context.Context, id uint, from, to models.ContractStatus) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Contract{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// MarkSettled records the processor references of a contract that is being settled
func (r *contractRepository) MarkSettled(ctx context.Context, id uint, chargeID, transferID string, settledAt time.Time) error {
	tx := r.db.WithContext(ctx).Model(&models.Contract{}).
		Where("id = ? AND status = ?", id, models.ContractStatusSettling).
		Updates(map[string]interface{}{
			"status":                   models.ContractStatusSettled,
			"accepted":                 true,
			"stripe_payment_intent_id": chargeID,
			"stripe_transfer_id":       transferID,
			"last_error":               "",
			"settled_at":               settledAt,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkFailed returns a contract that is being settled to pending and keeps the failure reason
func (r *contractRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	tx := r.db.WithContext(ctx).Model(&models.Contract{}).
		Where("id = ? AND status = ?", id, models.ContractStatusSettling).
		Updates(map[string]interface{}{
			"status":     models.ContractStatusPending,
			"last_error": reason,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByStatus returns the number of contracts in the given status
func (r *contractRepository) CountByStatus(ctx context.Context, status models.ContractStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Contract{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
