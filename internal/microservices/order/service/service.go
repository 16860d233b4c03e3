package service

import (
	"print-dispatcher/internal/microservices/order/repository"
)

type Service struct {
	OrderService OrderServiceInterface
}

func New(db *repository.Repository, pub Publisher) *Service {
	return &Service{
		OrderService: NewOrderService(db.OrderRepo, pub),
	}
}
