// Package consumer implements the broker subscription step and the message
// drain loop that runs alongside the HTTP server.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/storefront/component"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/kafka"
	"github.com/kbukum/storefront/logger"
	"github.com/kbukum/storefront/util"
)

// MessageHandler processes a Kafka message. Return a non-nil error to log a
// processing failure (the consumer will continue to the next message).
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// Conn is the subset of a broker connection used to check the subscription.
type Conn interface {
	ReadPartitions(topics ...string) ([]kafkago.Partition, error)
	Close() error
}

// DialFunc opens a connection to a single broker.
type DialFunc func(ctx context.Context, address string) (Conn, error)

// MessageReader is the subset of *kafkago.Reader the drain loop uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Stats() kafkago.ReaderStats
	Close() error
}

// ReaderFunc builds a MessageReader from a validated reader configuration.
type ReaderFunc func(cfg kafkago.ReaderConfig) MessageReader

// Consumer is the kafka-consumer startup step. Start dials the brokers and
// confirms the topic exists, Run drains messages until cancellation and
// Stop closes the reader.
type Consumer struct {
	cfg       kafka.Config
	log       *logger.Logger
	dialer    *kafkago.Dialer
	dial      DialFunc
	newReader ReaderFunc
	handler   MessageHandler

	mu         sync.Mutex
	reader     MessageReader
	partitions int
	stopped    bool
	failures   atomic.Int64
}

var (
	_ component.Component = (*Consumer)(nil)
	_ component.Runner    = (*Consumer)(nil)
)

// NewConsumer creates the consumer step for cfg.Topic. Messages are logged
// by default; use WithHandler to process them.
func NewConsumer(cfg kafka.Config, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	dialer, err := kafka.CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	c := &Consumer{
		cfg:    cfg,
		log:    log.WithComponent("kafka.consumer"),
		dialer: dialer,
	}
	c.dial = func(ctx context.Context, address string) (Conn, error) {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	c.newReader = func(rc kafkago.ReaderConfig) MessageReader {
		return kafkago.NewReader(rc)
	}
	c.handler = c.logMessage
	return c, nil
}

// WithHandler replaces the default message handler.
func (c *Consumer) WithHandler(h MessageHandler) *Consumer {
	c.handler = h
	return c
}

// WithDialFunc replaces how brokers are dialed.
func (c *Consumer) WithDialFunc(fn DialFunc) *Consumer {
	c.dial = fn
	return c
}

// WithReaderFunc replaces how the group reader is built.
func (c *Consumer) WithReaderFunc(fn ReaderFunc) *Consumer {
	c.newReader = fn
	return c
}

// Name returns the component name.
func (c *Consumer) Name() string { return "kafka-consumer" }

// Topic returns the consumer's topic.
func (c *Consumer) Topic() string { return c.cfg.Topic }

// GroupID returns the consumer's group ID.
func (c *Consumer) GroupID() string { return c.cfg.GroupID }

// Start contacts the brokers, checks the topic and joins the consumer group.
// An unreachable broker set yields BROKER_UNAVAILABLE; a topic that cannot
// be subscribed yields SUBSCRIPTION_FAILED.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.cfg.Brokers) == 0 {
		return apperrors.BrokerUnavailable(nil, errors.New("no broker addresses configured"))
	}

	conn, err := c.dialAny(ctx)
	if err != nil {
		return apperrors.BrokerUnavailable(c.cfg.Brokers, err)
	}
	partitions, err := conn.ReadPartitions(c.cfg.Topic)
	_ = conn.Close()
	if err != nil {
		return apperrors.SubscriptionFailed(c.cfg.Topic, err)
	}
	if len(partitions) == 0 {
		return apperrors.SubscriptionFailed(c.cfg.Topic, errors.New("topic has no partitions"))
	}

	if c.cfg.GroupID == "" {
		return apperrors.SubscriptionFailed(c.cfg.Topic, errors.New("consumer group id is empty"))
	}

	rc := kafkago.ReaderConfig{
		Brokers:           c.cfg.Brokers,
		Topic:             c.cfg.Topic,
		GroupID:           c.cfg.GroupID,
		Dialer:            c.dialer,
		StartOffset:       kafka.StartOffset(c.cfg.StartOffset),
		MinBytes:          c.cfg.MinBytes,
		MaxBytes:          c.cfg.MaxBytes,
		SessionTimeout:    kafka.ParseDuration(c.cfg.SessionTimeout),
		HeartbeatInterval: kafka.ParseDuration(c.cfg.HeartbeatInterval),
		RebalanceTimeout:  kafka.ParseDuration(c.cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			c.log.Error("reader: "+fmt.Sprintf(msg, args...), map[string]interface{}{
				logger.FieldTopic: c.cfg.Topic,
				"groupID":         c.cfg.GroupID,
			})
		}),
	}
	if err := rc.Validate(); err != nil {
		return apperrors.SubscriptionFailed(c.cfg.Topic, err)
	}

	c.mu.Lock()
	c.reader = c.newReader(rc)
	c.partitions = len(partitions)
	c.mu.Unlock()

	c.log.Info("Kafka consumer subscribed", map[string]interface{}{
		logger.FieldTopic: c.cfg.Topic,
		"groupID":         c.cfg.GroupID,
		"brokers":         strings.Join(c.cfg.Brokers, ","),
		"partitions":      len(partitions),
	})
	return nil
}

// dialAny returns a connection to the first broker that answers.
func (c *Consumer) dialAny(ctx context.Context) (Conn, error) {
	var errs []error
	for _, addr := range c.cfg.Brokers {
		conn, err := c.dial(ctx, addr)
		if err == nil {
			return conn, nil
		}
		c.log.Warn("Broker dial failed", map[string]interface{}{
			"broker":          addr,
			logger.FieldError: err.Error(),
		})
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return nil, errors.Join(errs...)
}

// Run drains messages until ctx is canceled or Stop is called. Transient
// read errors are retried with backoff; a non-retryable one ends the loop.
// Run after Stop returns nil.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	reader, stopped := c.reader, c.stopped
	c.mu.Unlock()
	if stopped {
		return nil
	}
	if reader == nil {
		return apperrors.ServeFailed(c.Name(), errors.New("consumer not started"))
	}

	c.log.Info("Starting consume loop", map[string]interface{}{
		logger.FieldTopic: c.cfg.Topic,
		"groupID":         c.cfg.GroupID,
	})

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || c.isStopped() {
				return nil
			}
			if kafka.IsNonRetryableError(err) {
				return apperrors.ServeFailed(c.Name(), err)
			}
			if waitErr := c.handleFailure(ctx, err, kafka.IsRetryableError(err)); waitErr != nil {
				return nil
			}
			continue
		}

		c.failures.Store(0)

		if err := c.handler(ctx, msg); err != nil {
			c.log.Error("Message processing failed", map[string]interface{}{
				logger.FieldError: err.Error(),
				logger.FieldTopic: msg.Topic,
				"offset":          msg.Offset,
			})
		}
	}
}

func (c *Consumer) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// handleFailure waits out a read error. Errors kafka-go does not mark as
// temporary back off at the ceiling straight away.
func (c *Consumer) handleFailure(ctx context.Context, err error, retryable bool) error {
	failures := c.failures.Add(1)
	if failures <= 3 {
		c.log.Error("Kafka read error", map[string]interface{}{
			logger.FieldError: err.Error(),
			"failures":        failures,
			"retryable":       retryable,
			logger.FieldTopic: c.cfg.Topic,
			"groupID":         c.cfg.GroupID,
		})
	}

	backoff := time.Duration(failures) * time.Second
	if !retryable || backoff > maxBackoff {
		backoff = maxBackoff
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

const maxBackoff = 30 * time.Second

// logMessage is the default handler: it logs the raw message.
func (c *Consumer) logMessage(_ context.Context, msg kafkago.Message) error {
	c.log.Info("Message received", map[string]interface{}{
		logger.FieldTopic: msg.Topic,
		"partition":       msg.Partition,
		"offset":          msg.Offset,
		"key":             string(msg.Key),
		"value":           string(msg.Value),
	})
	return nil
}

// Stop closes the group reader, leaving the consumer group.
func (c *Consumer) Stop(_ context.Context) error {
	c.mu.Lock()
	reader := c.reader
	c.reader = nil
	c.stopped = true
	c.mu.Unlock()
	if reader == nil {
		return nil
	}
	c.log.Info("Kafka consumer closing", map[string]interface{}{
		logger.FieldTopic: c.cfg.Topic,
		"groupID":         c.cfg.GroupID,
	})
	return reader.Close()
}

// Health reports unhealthy before Start and degraded while reads are failing.
// The message carries the reader's lag and counters.
func (c *Consumer) Health(_ context.Context) component.Health {
	c.mu.Lock()
	reader := c.reader
	c.mu.Unlock()
	if reader == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not subscribed"}
	}
	m := kafka.CollectReaderMetrics(reader.Stats())
	stats := fmt.Sprintf("lag=%d messages=%d errors=%d rebalances=%d", m.Lag, m.Messages, m.Errors, m.Rebalances)
	if failures := c.failures.Load(); failures > 0 {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusDegraded,
			Message: fmt.Sprintf("%d consecutive read failures, %s", failures, stats),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: stats}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Consumer) Describe() component.Description {
	c.mu.Lock()
	partitions := c.partitions
	c.mu.Unlock()
	details := fmt.Sprintf("topic=%s group=%s partitions=%d", c.cfg.Topic, c.cfg.GroupID, partitions)
	if c.cfg.EnableSASL {
		details += fmt.Sprintf(" sasl=%s:%s", c.cfg.SASLMechanism, util.MaskSecret(c.cfg.Username, 2))
	}
	return component.Description{
		Name:    "Kafka Consumer",
		Type:    "kafka",
		Details: details,
	}
}
