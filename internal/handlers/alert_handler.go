package handlers

import (
	"errors"
	"strings"

	"co2monitor/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// AlertHandler handles HTTP requests for alert configurations.
type AlertHandler struct {
	service  *services.AlertService
	validate *validator.Validate
	log      *zap.Logger
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(service *services.AlertService, log *zap.Logger) *AlertHandler {
	return &AlertHandler{
		service:  service,
		validate: newValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the alert routes.
func (h *AlertHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/user/:userId/alert", h.HandleAttachAlert)
}

// AlertRequest represents the request body for attaching an alert.
// Numbers are pointers so that a missing field fails "required" while 0 stays legal.
type AlertRequest struct {
	Topic    string   `json:"topic" validate:"required"`
	Port     *int     `json:"port" validate:"required,min=1,max=65535"`
	CO2Limit *float64 `json:"co2Limit" validate:"required,gte=0"`
	Broker   string   `json:"broker" validate:"required"`
}

// HandleAttachAlert creates an alert and adds it to the user's alert list.
func (h *AlertHandler) HandleAttachAlert(c *fiber.Ctx) error {
	// Params point into the request buffer, which Fiber reuses.
	userID := utils.CopyString(c.Params("userId"))

	var req AlertRequest
	ok, err := parseAndValidate(c, h.validate, &req, func() {
		req.Topic = strings.TrimSpace(req.Topic)
		req.Broker = strings.TrimSpace(req.Broker)
	})
	if !ok {
		return err
	}

	alert, err := h.service.AttachAlert(c.UserContext(), userID, services.AlertInput{
		Topic:    req.Topic,
		Port:     *req.Port,
		CO2Limit: *req.CO2Limit,
		Broker:   req.Broker,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "User not found",
			})
		}
		h.log.Error("attach alert failed", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error adding alert",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Alert added successfully",
		"alert":   alert,
	})
}
