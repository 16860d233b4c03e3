package feed

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"print-dispatcher/internal/connections/rabbitmq"
)

// Consumer reads inserted orders from the orders_topic binding. Undecodable
// messages are dead-lettered. Every other message is acked once handed to
// the dispatcher.
type Consumer struct {
	client   *rabbitmq.Client
	queue    string
	prefetch int
}

func NewConsumer(client *rabbitmq.Client, queue string) *Consumer {
	if queue == "" {
		queue = "orders_inserted"
	}
	return &Consumer{client: client, queue: queue, prefetch: 16}
}

func (c *Consumer) Name() string { return "amqp" }

func (c *Consumer) Run(ctx context.Context, h Handler) error {
	if err := c.client.DeclareTopology(c.queue); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	ch, msgs, err := c.client.Consume(c.queue, "print-dispatcher", c.prefetch, false)
	if err != nil {
		return err
	}
	defer ch.Close()
	log.Info("feed_subscribed", map[string]any{"source": "amqp", "queue": c.queue})

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-closed:
			if e != nil {
				return fmt.Errorf("amqp channel closed: %d %s", e.Code, e.Reason)
			}
			return errors.New("amqp channel closed")
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp delivery channel closed")
			}
			handleDelivery(ctx, d, h)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, h Handler) {
	if err := dispatch(ctx, d.Body, h); err != nil {
		log.Warn("feed_payload_dead_lettered", map[string]any{"message_id": d.MessageId, "error": err.Error()})
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
