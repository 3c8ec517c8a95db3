package repositories

import (
	"context"

	"co2monitor/internal/models"
)

// AlertRepository defines the interface for alert data access.
type AlertRepository interface {
	// AttachToUser stores alert and appends its ID to the user's alert list as one
	// unit: when the user does not exist it returns ErrNotFound and no alert is kept.
	AttachToUser(ctx context.Context, userID string, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
}
