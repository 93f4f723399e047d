package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

// AMQPChannel is the part of *amqp.Channel the sink needs.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitSink publishes every notification to a durable topic exchange with
// the notification topic as routing key, so consumers can bind "booking.#"
// or "due.*".
type RabbitSink struct {
	conn     *amqp.Connection
	channel  AMQPChannel
	exchange string
}

// DialRabbit connects with exponential backoff and declares the exchange.
func DialRabbit(url, exchange string, attempts int) (*RabbitSink, error) {
	if attempts <= 0 {
		attempts = 5
	}
	var conn *amqp.Connection
	var err error
	for i := 1; i <= attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Printf("RabbitSink: connect attempt %d failed: %v", i, err)
		if i < attempts {
			time.Sleep(time.Second * time.Duration(math.Pow(2, float64(i-1))))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", attempts, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	sink, err := NewRabbitSink(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sink.conn = conn
	log.Printf("RabbitSink: connected, publishing to exchange '%s'", exchange)
	return sink, nil
}

func NewRabbitSink(ch AMQPChannel, exchange string) (*RabbitSink, error) {
	if exchange == "" {
		exchange = "parkease.events"
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &RabbitSink{channel: ch, exchange: exchange}, nil
}

func (s *RabbitSink) Name() string { return "rabbitmq" }

func (s *RabbitSink) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = s.channel.PublishWithContext(ctx, s.exchange, n.Topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.EventID,
		Timestamp:    n.Timestamp,
		Type:         n.Topic,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", s.exchange, err)
	}
	return nil
}

func (s *RabbitSink) Close() {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	log.Println("RabbitSink: connection closed")
}
