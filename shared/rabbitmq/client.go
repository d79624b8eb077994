package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned while the trigger channel is down
var ErrNotConnected = errors.New("batch trigger channel not connected")

const triggerContentType = "application/json"

// Config holds RabbitMQ connection configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	RoutingKey         string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// URL renders the broker address
func (c *Config) URL() string {
	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		Vhost:    c.VHost,
	}.String()
}

// Client publishes and consumes quiz batch triggers
type Client struct {
	config    *Config
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *slog.Logger
	connected atomic.Bool
}

// NewClient dials the broker and declares the trigger exchange and queue
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	c := &Client{config: config, logger: logger}

	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.conn = conn

	if c.channel, err = conn.Channel(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open trigger channel: %w", err)
	}
	if err := c.declareTopology(); err != nil {
		c.channel.Close()
		conn.Close()
		return nil, err
	}

	// the health check reads this flag; a closed channel flips it
	closed := c.channel.NotifyClose(make(chan *amqp.Error, 1))
	c.connected.Store(true)
	go func() {
		if amqpErr, ok := <-closed; ok && amqpErr != nil {
			c.logger.Warn("Batch trigger channel closed by broker",
				slog.String("error", amqpErr.Error()),
			)
		}
		c.connected.Store(false)
	}()

	c.logger.Info("Batch trigger channel ready",
		slog.String("exchange", config.ExchangeName),
		slog.String("queue", config.QueueName),
		slog.String("routing_key", config.RoutingKey),
	)
	return c, nil
}

// dial tries the broker RetryAttempts times, RetryInterval apart
func (c *Client) dial() (*amqp.Connection, error) {
	amqpConfig := amqp.Config{Heartbeat: c.config.Heartbeat, Locale: "en_US"}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	attempts := max(c.config.RetryAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := amqp.DialConfig(c.config.URL(), amqpConfig)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.logger.Warn("Broker dial failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()),
		)
		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}
	return nil, fmt.Errorf("broker unreachable after %d attempts: %w", attempts, lastErr)
}

// declareTopology binds the trigger queue to the exchange under RoutingKey
func (c *Client) declareTopology() error {
	cfg := c.config
	if err := c.channel.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType,
		cfg.ExchangeDurable, cfg.ExchangeAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", cfg.ExchangeName, err)
	}
	if _, err := c.channel.QueueDeclare(cfg.QueueName,
		cfg.QueueDurable, cfg.QueueAutoDelete, cfg.QueueExclusive, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", cfg.QueueName, err)
	}
	if err := c.channel.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", cfg.QueueName, err)
	}
	return nil
}

// IsConnected reports whether triggers can currently be published
func (c *Client) IsConnected() bool {
	return c != nil && c.connected.Load() && c.conn != nil && !c.conn.IsClosed()
}

// SetQos limits unacknowledged deliveries per consumer
func (c *Client) SetQos(prefetchCount int) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	return nil
}

// ConsumeTriggers delivers raw trigger messages with manual acks.
// Decode each body with DecodeTrigger.
func (c *Client) ConsumeTriggers(consumerTag string) (<-chan amqp.Delivery, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	deliveries, err := c.channel.Consume(c.config.QueueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %q: %w", c.config.QueueName, err)
	}
	return deliveries, nil
}

// DecodeTrigger parses a trigger body. An empty body is a plain trigger.
func DecodeTrigger(body []byte) (domain.BatchMessage, error) {
	var msg domain.BatchMessage
	if len(body) == 0 {
		return msg, nil
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("invalid batch message: %w", err)
	}
	if msg.JobID != "" {
		if _, err := uuid.Parse(msg.JobID); err != nil {
			return msg, fmt.Errorf("invalid job_id %q: %w", msg.JobID, err)
		}
	}
	if msg.Limit < 0 {
		return msg, fmt.Errorf("invalid limit %d", msg.Limit)
	}
	return msg, nil
}

// PublishTrigger encodes msg and publishes it with retries
func (c *Client) PublishTrigger(ctx context.Context, msg domain.BatchMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode batch message: %w", err)
	}
	return c.publishWithRetry(ctx, body)
}

// Close shuts the channel and the connection
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.connected.Store(false)

	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			c.logger.Warn("Failed to close trigger channel", slog.String("error", err.Error()))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("failed to close broker connection: %w", err)
		}
	}
	c.logger.Info("Batch trigger channel closed")
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	return c.channel.PublishWithContext(ctx, c.config.ExchangeName, c.config.RoutingKey, false, false,
		amqp.Publishing{
			ContentType:  triggerContentType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// publishWithRetry backs off by PublishBackoffMult between attempts
func (c *Client) publishWithRetry(ctx context.Context, body []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	retries := c.config.PublishRetries
	if retries <= 0 {
		retries = 3
	}
	delay := c.config.PublishRetryDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	mult := c.config.PublishBackoffMult
	if mult <= 0 {
		mult = 2.0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if lastErr = c.publish(ctx, body); lastErr == nil {
			c.logger.Debug("Published batch trigger",
				slog.Int("attempt", attempt+1),
				slog.Int("body_size", len(body)),
			)
			return nil
		}
		if attempt == retries {
			break
		}

		c.logger.Warn("Failed to publish batch trigger, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_after", delay),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish cancelled after %d attempts: %w", attempt+1, ctx.Err())
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * mult)
	}

	return fmt.Errorf("failed to publish batch trigger after %d attempts: %w", retries+1, lastErr)
}
