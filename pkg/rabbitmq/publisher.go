package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tilnancy/pod-mod/config"
	"github.com/tilnancy/pod-mod/dto"
)

// JobPublisher enqueues moderation jobs for the consumer pool.
type JobPublisher interface {
	PublishModerationJob(ctx context.Context, msg dto.ModerationJobMessage) error
}

type publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) JobPublisher {
	return &publisher{conn: conn, cfg: cfg}
}

func (p *publisher) PublishModerationJob(ctx context.Context, msg dto.ModerationJobMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(moderationExchange, p.cfg.Kind, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		moderationExchange,
		moderationRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
