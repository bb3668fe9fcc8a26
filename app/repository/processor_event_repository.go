package repository

import (
	"context"
	"time"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type processorEventRepository struct {
	db *gorm.DB
}

// NewProcessorEventRepository creates a webhook event repository backed by GORM.
func NewProcessorEventRepository(db *gorm.DB) ProcessorEventRepository {
	return &processorEventRepository{db: db}
}

func (r *processorEventRepository) CreateIfNotExists(ctx context.Context, event *models.ProcessorEvent) (bool, *models.ProcessorEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.ProcessorEvent
	if err := r.db.WithContext(ctx).Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		Take(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *processorEventRepository) MarkProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.ProcessorEvent{}).Where("id = ?", id).Updates(updates).Error
}
