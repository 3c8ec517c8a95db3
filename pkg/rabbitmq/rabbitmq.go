package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"co2monitor/internal/models"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	// AlertQueue receives a message for every alert configuration attached to a user.
	AlertQueue = "alert_events"

	EventAlertCreated = "alert.created"
)

// channel is the part of *amqp.Channel the client publishes through.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    io.Closer
	channel channel
	queue   string
	mu      sync.Mutex // serializes publishes on the shared channel
	log     *zap.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string // defaults to AlertQueue
}

// AlertEvent is the JSON payload published on the alert queue.
type AlertEvent struct {
	Event      string       `json:"event"`
	UserID     string       `json:"userId"`
	Alert      models.Alert `json:"alert"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// NewClient connects to RabbitMQ, opens a channel and declares the alert queue.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.Queue == "" {
		cfg.Queue = AlertQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", cfg.Queue, err)
	}

	log.Info("RabbitMQ client connected", zap.String("queue", cfg.Queue))

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		log:     log,
	}, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishAlertCreated publishes an alert.created event as a persistent JSON message.
func (c *Client) PublishAlertCreated(userID string, alert models.Alert) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	now := time.Now().UTC()
	body, err := NewAlertCreatedMessage(userID, alert, now)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		"",      // exchange: default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         EventAlertCreated,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    now,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.log.Debug("published alert event", zap.String("alert_id", alert.ID))
	return nil
}

// NewAlertCreatedMessage encodes the alert.created payload.
func NewAlertCreatedMessage(userID string, alert models.Alert, at time.Time) ([]byte, error) {
	body, err := json.Marshal(AlertEvent{
		Event:      EventAlertCreated,
		UserID:     userID,
		Alert:      alert,
		OccurredAt: at,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert event: %w", err)
	}
	return body, nil
}
