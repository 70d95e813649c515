package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const defaultExchange = "mindvault.events"

// Publisher sends domain events to a topic exchange, routed by event type.
type Publisher struct {
	conn     *amqp091.Connection
	mu       sync.Mutex // channels are not safe for concurrent publishes
	channel  *amqp091.Channel
	exchange string
	now      func() time.Time
}

// Envelope is the message body on the wire.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

func NewPublisher(uri, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = defaultExchange
	}
	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	log.Printf("event publisher ready on exchange %s", exchange)
	return &Publisher{conn: conn, channel: channel, exchange: exchange, now: time.Now}, nil
}

func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := encode(eventType, p.now().UTC(), payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		eventType,  // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    p.now(),
			Body:         body,
			Headers:      amqp091.Table{"event_type": eventType},
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Close(); err != nil {
		log.Printf("close channel: %v", err)
	}
	return p.conn.Close()
}

func encode(eventType string, at time.Time, payload any) ([]byte, error) {
	body, err := json.Marshal(Envelope{Type: eventType, OccurredAt: at, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return body, nil
}
