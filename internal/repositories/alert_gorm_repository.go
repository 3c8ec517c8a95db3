package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"co2monitor/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMAlertRepository is a GORM implementation of AlertRepository.
type GORMAlertRepository struct {
	db *gorm.DB
}

// NewGORMAlertRepository creates a new instance of GORMAlertRepository.
func NewGORMAlertRepository(db *gorm.DB) *GORMAlertRepository {
	return &GORMAlertRepository{
		db: db,
	}
}

// AttachToUser creates the alert and its link row in a single transaction.
func (r *GORMAlertRepository) AttachToUser(ctx context.Context, userID string, alert *models.Alert) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&owners).Error; err != nil {
			return fmt.Errorf("failed to look up user %s: %w", userID, err)
		}
		if owners == 0 {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}

		if alert.ID == "" {
			alert.ID = uuid.New().String()
		}
		if alert.CreatedAt.IsZero() {
			alert.CreatedAt = time.Now().UTC()
		}
		if err := tx.Create(alert).Error; err != nil {
			return fmt.Errorf("failed to create alert: %w", err)
		}

		link := models.UserAlert{UserID: userID, AlertID: alert.ID}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link alert %s to user %s: %w", alert.ID, userID, err)
		}
		return nil
	})
}

// GetByID retrieves a single alert by its ID from the database.
func (r *GORMAlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert by ID %s: %w", id, err)
	}
	return &alert, nil
}
