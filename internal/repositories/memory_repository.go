package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"co2monitor/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory backing store shared by MemoryUserRepository and
// MemoryAlertRepository so that attaching an alert can check and update the user
// under one lock.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	alerts  map[string]models.Alert
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		alerts:  make(map[string]models.Alert),
	}
}

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	store *MemoryStore
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository(store *MemoryStore) *MemoryUserRepository {
	return &MemoryUserRepository{store: store}
}

// Create adds a new user.
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, user.Email)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Alerts = []string{}

	s.users[user.ID] = cloneUser(*user)
	s.byEmail[user.Email] = user.ID
	return nil
}

// GetByEmail returns a user by email.
func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	user := cloneUser(s.users[id])
	return &user, nil
}

// GetByID returns a user by ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	user := cloneUser(stored)
	return &user, nil
}

// GetProfile returns a user by ID with the password hash cleared.
func (r *MemoryUserRepository) GetProfile(ctx context.Context, id string) (*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// MemoryAlertRepository is an in-memory implementation of AlertRepository.
type MemoryAlertRepository struct {
	store *MemoryStore
}

// NewMemoryAlertRepository creates a new instance of MemoryAlertRepository.
func NewMemoryAlertRepository(store *MemoryStore) *MemoryAlertRepository {
	return &MemoryAlertRepository{store: store}
}

// AttachToUser stores the alert and appends it to the user's list.
func (r *MemoryAlertRepository) AttachToUser(_ context.Context, userID string, alert *models.Alert) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	s.alerts[alert.ID] = *alert
	user = cloneUser(user)
	user.Alerts = append(user.Alerts, alert.ID)
	s.users[user.ID] = user
	return nil
}

// GetByID returns an alert by its ID.
func (r *MemoryAlertRepository) GetByID(_ context.Context, id string) (*models.Alert, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return &alert, nil
}

// cloneUser copies the alert slice so callers never share the stored backing array.
func cloneUser(u models.User) models.User {
	u.Alerts = append([]string{}, u.Alerts...)
	return u
}
