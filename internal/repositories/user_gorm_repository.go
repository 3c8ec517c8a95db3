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

// GORMUserRepository is a GORM implementation of UserRepository.
// The *gorm.DB must be opened with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Alerts = []string{}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, r.db.WithContext(ctx), "email = ?", email)
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, r.db.WithContext(ctx), "id = ?", id)
}

// GetProfile retrieves a user by ID without the password column.
func (r *GORMUserRepository) GetProfile(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, r.db.WithContext(ctx).Omit("password"), "id = ?", id)
}

func (r *GORMUserRepository) first(ctx context.Context, query *gorm.DB, cond string, arg string) (*models.User, error) {
	var user models.User
	if err := query.First(&user, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", arg, err)
	}

	alertIDs, err := alertIDsOf(r.db.WithContext(ctx), user.ID)
	if err != nil {
		return nil, err
	}
	user.Alerts = alertIDs
	return &user, nil
}

// alertIDsOf returns the user's alert ids in attach order.
func alertIDsOf(db *gorm.DB, userID string) ([]string, error) {
	ids := []string{}
	err := db.Model(&models.UserAlert{}).
		Where("user_id = ?", userID).
		Order("id").
		Pluck("alert_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts of user %s: %w", userID, err)
	}
	return ids, nil
}
