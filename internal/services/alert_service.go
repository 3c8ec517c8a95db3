package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"co2monitor/internal/models"
	"co2monitor/internal/repositories"

	"go.uber.org/zap"
)

// AlertEventPublisher announces alert configuration changes to downstream consumers.
type AlertEventPublisher interface {
	PublishAlertCreated(userID string, alert models.Alert) error
}

// AlertInput carries the fields of a new alert configuration.
type AlertInput struct {
	Topic    string
	Port     int
	CO2Limit float64
	Broker   string
}

// AlertService handles business logic related to alerts.
type AlertService struct {
	alertRepo repositories.AlertRepository
	publisher AlertEventPublisher // nil disables events
	log       *zap.Logger
}

// NewAlertService creates a new AlertService. publisher may be nil.
func NewAlertService(alertRepo repositories.AlertRepository, publisher AlertEventPublisher, log *zap.Logger) *AlertService {
	return &AlertService{
		alertRepo: alertRepo,
		publisher: publisher,
		log:       log,
	}
}

// AttachAlert creates an alert and appends it to the user's alert list.
// It returns ErrUserNotFound, with nothing stored, when the user does not exist.
func (s *AlertService) AttachAlert(ctx context.Context, userID string, in AlertInput) (*models.Alert, error) {
	alert := &models.Alert{
		Topic:    strings.TrimSpace(in.Topic),
		Port:     in.Port,
		CO2Limit: in.CO2Limit,
		Broker:   strings.TrimSpace(in.Broker),
	}

	if err := s.alertRepo.AttachToUser(ctx, userID, alert); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to attach alert: %w", err)
	}
	s.log.Info("alert attached", zap.String("user_id", userID), zap.String("alert_id", alert.ID))

	if s.publisher != nil {
		if err := s.publisher.PublishAlertCreated(userID, *alert); err != nil {
			s.log.Warn("failed to publish alert created event", zap.String("alert_id", alert.ID), zap.Error(err))
		}
	}
	return alert, nil
}
