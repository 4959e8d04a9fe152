// Package events публикует события жизненного цикла ресурсов (создание и
// удаление POI, категорий, заметок) в RabbitMQ. Публикация — побочный канал:
// отказ брокера логируется вызывающей стороной и не откатывает запись
// в основное хранилище.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Exchange — точка обмена для событий сервиса.
const Exchange = "imaps.events"

// Ключи маршрутизации публикуемых событий.
const (
	RoutingPOICreated      = "poi.created"
	RoutingPOIRemoved      = "poi.removed"
	RoutingCategoryCreated = "category.created"
	RoutingCategoryRemoved = "category.removed"
	RoutingNoteCreated     = "note.created"
	RoutingNoteRemoved     = "note.removed"
)

// Publisher описывает контракт публикации события.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Event — конверт публикуемого события.
type Event struct {
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id"`
	ResourceID string    `json:"resource_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AMQPPublisher публикует события в RabbitMQ.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect устанавливает соединение с брокером и объявляет точку обмена.
func Connect(url string) (*AMQPPublisher, error) {
	const op = "events.Connect"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

// Publish сериализует событие в JSON и публикует его с признаком Persistent.
func (p *AMQPPublisher) Publish(routingKey string, message any) error {
	const op = "events.Publish"

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = p.ch.Publish(
		Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает канал и соединение с брокером.
func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

// Noop — заглушка, используемая когда брокер не сконфигурирован.
type Noop struct{}

// Publish ничего не делает.
func (Noop) Publish(string, any) error { return nil }
