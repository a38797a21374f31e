package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"sopbot/internal/model"
)

// HistoryPublisher enqueues chat exchanges for asynchronous persistence. The
// analytics write stays synchronous on the request path; history alone may
// trail the response.
type HistoryPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewHistoryPublisher(conn *amqp.Connection, queueName string) *HistoryPublisher {
	return &HistoryPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *HistoryPublisher) Publish(ctx context.Context, appendReq model.HistoryAppend) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(appendReq)
	if err != nil {
		return fmt.Errorf("marshal history payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish history append failed: %w", err)
	}
	return nil
}
