package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"print-dispatcher/internal/connections/rabbitmq"
	"print-dispatcher/internal/domain"
	dao "print-dispatcher/internal/microservices/order/domain/dao"
	dto "print-dispatcher/internal/microservices/order/domain/dto"
	"print-dispatcher/internal/microservices/order/repository"
)

var (
	ErrInvalidOrder = errors.New("invalid order")
	// ErrNotPublished comes with a valid response: the order exists.
	ErrNotPublished = errors.New("order not published")
)

type OrderServiceInterface interface {
	AddOrder(ctx context.Context, req dto.CreateOrderRequest) (dto.CreateOrderResponse, error)
}

// Publisher is the part of the RabbitMQ client the intake needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

const publishTimeout = 5 * time.Second

type OrderService struct {
	db  repository.OrderRepositoryInterface
	pub Publisher
	now func() time.Time
}

// NewOrderService builds the intake. With a nil publisher orders are only
// written to the store.
func NewOrderService(db repository.OrderRepositoryInterface, pub Publisher) OrderServiceInterface {
	return &OrderService{db: db, pub: pub, now: time.Now}
}

func (or *OrderService) AddOrder(ctx context.Context, req dto.CreateOrderRequest) (dto.CreateOrderResponse, error) {
	// 1. Validation
	if len(req.Items) == 0 {
		return dto.CreateOrderResponse{}, fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			return dto.CreateOrderResponse{}, fmt.Errorf("%w: item %d has no name", ErrInvalidOrder, i+1)
		}
		if item.Quantity < 0 {
			return dto.CreateOrderResponse{}, fmt.Errorf("%w: invalid quantity for item %s", ErrInvalidOrder, item.Name)
		}
		if item.Price.IsNegative() {
			return dto.CreateOrderResponse{}, fmt.Errorf("%w: invalid price for item %s", ErrInvalidOrder, item.Name)
		}
	}

	items := dto.ConvertItems(req.Items)
	now := or.now().UTC()

	order := dao.Order{
		OrderNumber:   strings.TrimSpace(req.OrderNumber),
		Items:         items,
		Customer:      req.Customer,
		TotalPrice:    dao.Total(items),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		PrintStatus:   domain.StatusPendingPrint,
		CreatedAt:     now,
	}

	// 2. Save, allocating ORD_YYYYMMDD_NNN unless the caller brought a number
	var (
		id  int64
		err error
	)
	if order.OrderNumber != "" {
		id, err = or.db.AddOrder(ctx, order)
	} else {
		id, order.OrderNumber, err = or.db.AddNumberedOrder(ctx, order, fmt.Sprintf("ORD_%s_", now.Format("20060102")))
	}
	if err != nil {
		return dto.CreateOrderResponse{}, fmt.Errorf("failed to save order: %w", err)
	}
	order.ID = id

	resp := dto.CreateOrderResponse{
		ID:          id,
		OrderNumber: order.OrderNumber,
		PrintStatus: order.PrintStatus,
		TotalPrice:  order.TotalPrice,
	}

	// 3. Announce on orders_topic for dispatchers fed from RabbitMQ. The row
	// is already stored and the sweep prints it either way.
	if or.pub != nil {
		if err := or.publish(ctx, order); err != nil {
			resp.Warning = "order stored but not published: " + err.Error()
			return resp, fmt.Errorf("order %d: %w: %w", id, ErrNotPublished, err)
		}
		resp.Published = true
	}

	return resp, nil
}

func (or *OrderService) publish(ctx context.Context, order dao.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order message: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return or.pub.Publish(ctx, rabbitmq.OrdersExchange, rabbitmq.OrdersInsertedRK, amqp.Publishing{
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: strconv.FormatInt(order.ID, 10),
		Headers:       amqp.Table{"x-source": "order-intake"},
		Body:          body,
	})
}
