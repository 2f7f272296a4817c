package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"lrt-predictor/internal/domain/entity"
	"lrt-predictor/pkg/utils"
)

const (
	// PredictionCreatedType is set as the AMQP type of every prediction event.
	PredictionCreatedType = "prediction.created"
	appID                 = "lrt-predictor"
)

// amqpPublisher is the part of *amqp.Channel the publisher needs.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// PredictionPublisher sends prediction.created events to a topic exchange.
// The entry id travels as the message id so consumers can drop redeliveries.
type PredictionPublisher struct {
	ch         amqpPublisher
	exchange   string
	routingKey string
}

func NewPredictionPublisher(conn *amqp.Connection, exchange, routingKey string) (*PredictionPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publish channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &PredictionPublisher{ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

func (p *PredictionPublisher) Publish(ctx context.Context, msg entity.PredictionCreatedMessage) error {
	pub, err := publishing(msg)
	if err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", msg.EntryID, err)
	}
	return nil
}

func (p *PredictionPublisher) Close() error {
	return p.ch.Close()
}

func publishing(msg entity.PredictionCreatedMessage) (amqp.Publishing, error) {
	body, err := utils.ToRawMessage(msg)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.EntryID,
		Timestamp:    msg.SubmittedAt,
		Type:         PredictionCreatedType,
		AppId:        appID,
		Body:         body,
	}, nil
}
