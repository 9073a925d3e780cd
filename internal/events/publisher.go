// Package events publishes account and appointment events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	ExchangeName = "clinic.events"
	ExchangeType = "topic"
)

// Routing keys.
const (
	AccountRegistered    = "account.registered"
	AccountPromoted      = "account.promoted"
	AccountDeleted       = "account.deleted"
	AppointmentBooked    = "appointment.booked"
	AppointmentUpdated   = "appointment.updated"
	AppointmentCancelled = "appointment.cancelled"
)

// Event is the envelope of every published message.
type Event struct {
	Type       string    `json:"type"`
	SubjectID  string    `json:"subjectId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// Publisher is nil-safe: a nil *Publisher drops events with a debug log.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
}

// NewPublisher connects to url and declares the topic exchange.
func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	log.Info("connected to RabbitMQ", zap.String("exchange", ExchangeName))
	return &Publisher{conn: conn, channel: channel, exchange: ExchangeName, log: log}, nil
}

// Publish sends an event of type routingKey about subjectID.
func (p *Publisher) Publish(ctx context.Context, routingKey, subjectID string, data any) error {
	if p == nil || p.channel == nil {
		return nil
	}
	body, err := json.Marshal(Event{Type: routingKey, SubjectID: subjectID, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", routingKey, err)
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", routingKey, err)
	}
	p.log.Debug("event published", zap.String("routing_key", routingKey), zap.String("subject_id", subjectID))
	return nil
}

// Emit publishes and logs a failure instead of returning it. Events never
// fail the operation that produced them.
func (p *Publisher) Emit(ctx context.Context, routingKey, subjectID string, data any) {
	if err := p.Publish(ctx, routingKey, subjectID, data); err != nil {
		p.log.Warn("event not published", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("closing RabbitMQ channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
