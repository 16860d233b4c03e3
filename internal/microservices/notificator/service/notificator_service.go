package service

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"print-dispatcher/internal/common/logger"
	"print-dispatcher/internal/connections/rabbitmq"
	dispatcher "print-dispatcher/internal/microservices/dispatcher/service"
)

type NotificatorService struct {
	rmqClient *rabbitmq.Client
	lg        *logger.Logger
}

func NewNotificatorService(rmqClient *rabbitmq.Client) *NotificatorService {
	return &NotificatorService{rmqClient: rmqClient, lg: logger.New("notificator")}
}

// Notify logs every print event published on the print_events fanout until
// ctx is cancelled or the broker closes the channel.
func (ns *NotificatorService) Notify(ctx context.Context) error {
	ch, msgs, err := ns.rmqClient.ConsumeFanout(rabbitmq.EventsExchange, "print-watch")
	if err != nil {
		return err
	}
	defer ch.Close()
	ns.lg.Info("watching_print_events", map[string]any{"exchange": rabbitmq.EventsExchange})

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("print event channel closed")
			}
			ns.handle(d)
		}
	}
}

func (ns *NotificatorService) handle(d amqp.Delivery) {
	ev, err := DecodeEvent(d.Body)
	if err != nil {
		ns.lg.Warn("print_event_undecodable", map[string]any{"message_id": d.MessageId, "error": err.Error()})
		return
	}
	ns.lg.Info("print_event", EventFields(ev))
}

func DecodeEvent(b []byte) (dispatcher.PrintEvent, error) {
	var ev dispatcher.PrintEvent
	err := json.Unmarshal(b, &ev)
	return ev, err
}

// EventFields flattens an event into log fields, one key per role.
func EventFields(ev dispatcher.PrintEvent) map[string]any {
	f := map[string]any{
		"order_id":   ev.OrderID,
		"old_status": ev.OldStatus,
		"new_status": ev.NewStatus,
		"source":     ev.Source,
		"instance":   ev.Instance,
	}
	if ev.OrderNumber != "" {
		f["order_number"] = ev.OrderNumber
	}
	for _, d := range ev.Deliveries {
		v := string(d.Result)
		if d.Printer != "" {
			v += "@" + d.Printer
		}
		f[string(d.Role)] = v
	}
	return f
}
