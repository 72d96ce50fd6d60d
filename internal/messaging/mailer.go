// Package messaging hands outbound email to the broker consumed by the external mailer.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
)

// Mailer sends a single email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
	Close() error
}

// NewMailer returns a broker-backed mailer, or a log-only mailer when no broker URL is set.
func NewMailer(cfg config.BrokerConfig, logger *zap.Logger) (Mailer, error) {
	if cfg.URL == "" {
		logger.Warn("AMQP_URL not provided; email dispatch is log-only")
		return NewLogMailer(logger), nil
	}
	return NewAMQPMailer(cfg, logger)
}

type amqpMailer struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	url      string
	exchange string
	key      string
	producer string
	maxRetry time.Duration
	logger   *zap.Logger
}

// NewAMQPMailer dials the broker and declares the topic exchange.
func NewAMQPMailer(cfg config.BrokerConfig, logger *zap.Logger) (Mailer, error) {
	m := &amqpMailer{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		key:      cfg.EmailRoutingKey,
		producer: cfg.Producer,
		maxRetry: time.Duration(cfg.PublishMaxRetrySec) * time.Second,
		logger:   logger,
	}
	if _, err := m.connection(); err != nil {
		return nil, err
	}
	logger.Info("connected to broker", zap.String("exchange", cfg.Exchange))
	return m, nil
}

func (m *amqpMailer) connection() (*amqp.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil && !m.conn.IsClosed() {
		return m.conn, nil
	}
	conn, err := amqp.Dial(m.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(m.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	m.conn = conn
	return conn, nil
}

func (m *amqpMailer) Send(ctx context.Context, email Email) error {
	env := Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Producer: &m.producer,
			Time:     time.Now().UTC(),
			Type:     m.key,
		},
		Data: email,
	}
	if email.TicketID != "" {
		cid := email.TicketID
		env.Meta.CorrelationID = &cid
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		conn, err := m.connection()
		if err != nil {
			return err
		}
		ch, err := conn.Channel()
		if err != nil {
			return err
		}
		defer ch.Close()
		return ch.PublishWithContext(ctx, m.exchange, m.key, false, false, amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.Meta.ID,
			CorrelationId: email.TicketID,
			Timestamp:     env.Meta.Time,
			Body:          body,
		})
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = m.maxRetry
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return err
	}
	m.logger.Debug("email published", zap.String("kind", email.Kind), zap.String("ticket_id", email.TicketID))
	return nil
}

func (m *amqpMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

type logMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a Mailer that only logs.
func NewLogMailer(logger *zap.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (l *logMailer) Send(_ context.Context, email Email) error {
	l.logger.Info("email (log only)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("kind", email.Kind),
		zap.String("ticket_id", email.TicketID),
	)
	return nil
}

func (l *logMailer) Close() error { return nil }
