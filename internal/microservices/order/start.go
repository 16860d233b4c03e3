package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"print-dispatcher/internal/common/config"
	"print-dispatcher/internal/common/logger"
	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/connections/rabbitmq"
	dto "print-dispatcher/internal/microservices/order/domain/dto"
	"print-dispatcher/internal/microservices/order/handlers"
	"print-dispatcher/internal/microservices/order/repository"
	"print-dispatcher/internal/microservices/order/service"
)

// NewHandler builds the HTTP intake over an open store. pub may be nil.
func NewHandler(db *sql.DB, driver string, pub service.Publisher) *handlers.Handler {
	repo := repository.New(db, driver)
	return handlers.New(service.New(repo, pub))
}

// Submit stores one order as pending_print. When the dispatcher is fed from
// RabbitMQ the order is also published to orders_topic.
func Submit(ctx context.Context, cfg config.App, req dto.CreateOrderRequest) (dto.CreateOrderResponse, error) {
	lg := logger.New("order-intake")

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return dto.CreateOrderResponse{}, fmt.Errorf("open order store: %w", err)
	}
	defer db.Close()

	var pub service.Publisher
	if cfg.Feed.Source == "amqp" {
		rmq, err := rabbitmq.Dial(cfg.Rabbit)
		if err != nil {
			return dto.CreateOrderResponse{}, err
		}
		defer rmq.Close()
		if err := rmq.DeclareTopology(cfg.Feed.Queue); err != nil {
			return dto.CreateOrderResponse{}, fmt.Errorf("declare rabbitmq topology: %w", err)
		}
		pub = rmq
	}

	svc := service.New(repository.New(db, cfg.Database.Driver), pub)
	resp, err := svc.OrderService.AddOrder(ctx, req)
	if errors.Is(err, service.ErrNotPublished) {
		lg.Warn("order_not_published", map[string]any{"order_id": resp.ID, "order_number": resp.OrderNumber, "error": err.Error()})
		return resp, nil
	}
	if err != nil {
		lg.Error("order_rejected", err, map[string]any{"order_number": req.OrderNumber})
		return dto.CreateOrderResponse{}, err
	}
	lg.Info("order_received", map[string]any{
		"order_id":     resp.ID,
		"order_number": resp.OrderNumber,
		"total_price":  resp.TotalPrice.StringFixed(2),
		"published":    resp.Published,
	})
	return resp, nil
}
