package bussink

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AmqpTransport publishes to RabbitMQ: a fanout exchange when isTopic
// is set, otherwise the default exchange addressed by routing key
// (queue name).
type AmqpTransport struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAmqpTransport(conn *amqp.Connection, topicExchange string) (*AmqpTransport, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("bussink: open channel: %w", err)
	}
	if topicExchange != "" {
		if err := ch.ExchangeDeclare(topicExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("bussink: declare exchange %s: %w", topicExchange, err)
		}
	}
	return &AmqpTransport{conn: conn, ch: ch, exchange: topicExchange}, nil
}

func (t *AmqpTransport) Publish(ctx context.Context, destination string, isTopic bool, payload []byte) error {
	exchange := ""
	routingKey := destination
	if isTopic {
		exchange = t.exchange
		routingKey = ""
	} else {
		if _, err := t.ch.QueueDeclare(destination, true, false, false, false, nil); err != nil {
			return fmt.Errorf("bussink: declare queue %s: %w", destination, err)
		}
	}
	err := t.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
	if err != nil {
		return fmt.Errorf("bussink: amqp publish %s: %w", destination, err)
	}
	return nil
}

func (t *AmqpTransport) Close() error {
	if t.ch != nil {
		_ = t.ch.Close()
	}
	return nil
}
