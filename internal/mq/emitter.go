package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is the JSON envelope of every event
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage wraps a payload into an envelope with a fresh id
func NewMessage(eventType string, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Emitter publishes domain events to a topic exchange
type Emitter struct {
	conn     *Connection
	exchange string
	logger   *slog.Logger
}

// NewEmitter declares the topic exchange and returns an emitter for it
func NewEmitter(conn *Connection, exchange string, logger *slog.Logger) (*Emitter, error) {
	err := conn.WithChannel(func(ch *amqp.Channel) error {
		return ch.ExchangeDeclare(
			exchange,
			amqp.ExchangeTopic,
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Emitter{conn: conn, exchange: exchange, logger: logger}, nil
}

// Emit publishes payload with the routing key as the event type
func (e *Emitter) Emit(ctx context.Context, routingKey string, payload any) error {
	msg := NewMessage(routingKey, payload)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return e.conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			e.exchange,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", e.exchange, routingKey, err)
		}

		e.logger.Debug("event published", "routing_key", routingKey, "message_id", msg.ID)
		return nil
	})
}

// LogEmitter writes events to the log when no broker is configured
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an emitter that only logs at debug level
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the event
func (e *LogEmitter) Emit(_ context.Context, routingKey string, payload any) error {
	e.logger.Debug("event", "routing_key", routingKey, "payload", payload)
	return nil
}
