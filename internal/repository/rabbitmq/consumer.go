package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"lrt-predictor/internal/domain/entity"
	"lrt-predictor/internal/domain/usecase"
)

var ErrChannelClosed = errors.New("rabbitmq delivery channel closed")

type EventHandler interface {
	Record(ctx context.Context, msg entity.PredictionCreatedMessage) error
}

// PredictionConsumer drains prediction events from a durable queue bound to
// the prediction exchange. Deliveries are handled one at a time.
type PredictionConsumer struct {
	channel *amqp.Channel
	queue   string
	Handler EventHandler
	Logger  *zap.Logger
}

func NewPredictionConsumer(conn *amqp.Connection, exchange, routingKey, queue string, h EventHandler, logger *zap.Logger) (*PredictionConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(
		queue,
		true, // durable
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		return nil, err
	}

	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		ch.Close()
		return nil, err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, err
	}

	return &PredictionConsumer{
		channel: ch,
		queue:   queue,
		Handler: h,
		Logger:  logger,
	}, nil
}

func (c *PredictionConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}
	return c.drain(ctx, msgs)
}

// drain handles deliveries until ctx is done. A closed delivery channel is
// an error so the worker exits non-zero and gets restarted.
func (c *PredictionConsumer) drain(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("consumer shutting down")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *PredictionConsumer) Close() error {
	return c.channel.Close()
}

// handle acks recorded events, drops undecodable ones and requeues the rest.
func (c *PredictionConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	var event entity.PredictionCreatedMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.Logger.Warn("failed to unmarshal prediction event", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	if err := c.Handler.Record(ctx, event); err != nil {
		if errors.Is(err, usecase.ErrBadEvent) {
			c.Logger.Warn("dropping prediction event", zap.String("entry_id", event.EntryID), zap.Error(err))
			_ = msg.Nack(false, false)
			return
		}
		c.Logger.Error("failed to record prediction event", zap.String("entry_id", event.EntryID), zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
