package repositories

import (
	"context"

	"co2monitor/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create assigns an ID and CreatedAt and stores the user. It returns
	// ErrDuplicateEmail when the email is already taken.
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetProfile is GetByID without reading the password hash.
	GetProfile(ctx context.Context, id string) (*models.User, error)
}
