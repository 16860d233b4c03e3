package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"print-dispatcher/internal/connections/rabbitmq"
	"print-dispatcher/internal/domain"
)

type DeliveryResult string

const (
	DeliveryOK      DeliveryResult = "ok"
	DeliveryFailed  DeliveryResult = "failed"
	DeliverySkipped DeliveryResult = "unbound"
)

type Delivery struct {
	Role    domain.Role    `json:"role"`
	Printer string         `json:"printer,omitempty"`
	Result  DeliveryResult `json:"result"`
	Error   string         `json:"error,omitempty"`
}

// PrintEvent describes one processed order: the status it left, the status
// it was finalized to, and what happened at each printer.
type PrintEvent struct {
	EventID     string             `json:"event_id"`
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number,omitempty"`
	OldStatus   domain.PrintStatus `json:"old_status"`
	NewStatus   domain.PrintStatus `json:"new_status"`
	Source      JobSource          `json:"source"`
	Deliveries  []Delivery         `json:"deliveries"`
	Instance    string             `json:"instance"`
	Timestamp   time.Time          `json:"timestamp"`
}

type Notifier interface {
	Notify(ctx context.Context, ev PrintEvent) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, PrintEvent) error { return nil }

// Notifiers fans one event out to every notifier and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev PrintEvent) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AMQPNotifier publishes print events to the print_events fanout.
type AMQPNotifier struct {
	client *rabbitmq.Client
}

func NewAMQPNotifier(client *rabbitmq.Client) *AMQPNotifier {
	return &AMQPNotifier{client: client}
}

func (n *AMQPNotifier) Notify(ctx context.Context, ev PrintEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, rabbitmq.EventsExchange, "", amqp.Publishing{
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: ev.EventID,
		Headers: amqp.Table{
			"x-source":   "print-dispatcher",
			"x-instance": ev.Instance,
		},
		Body: body,
	})
}
