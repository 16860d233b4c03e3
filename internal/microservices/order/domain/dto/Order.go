package dto

import (
	"github.com/shopspring/decimal"

	"print-dispatcher/internal/domain"
	"print-dispatcher/internal/microservices/order/domain/dao"
)

type CreateOrderRequest struct {
	OrderNumber   string           `json:"order_number"`
	Customer      dao.Customer     `json:"customer_info"`
	PaymentMethod string           `json:"payment_method"`
	Items         []OrderItemInput `json:"items"`
}

type CreateOrderResponse struct {
	ID          int64              `json:"id"`
	OrderNumber string             `json:"order_number"`
	PrintStatus domain.PrintStatus `json:"print_status"`
	TotalPrice  decimal.Decimal    `json:"total_price"`
	Published   bool               `json:"published"`
	Warning     string             `json:"warning,omitempty"`
}

type OrderItemInput struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Options  []string        `json:"options,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// ConvertItems maps input items to stored items. A zero quantity means one.
func ConvertItems(inputs []OrderItemInput) []dao.OrderItem {
	items := make([]dao.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		qty := in.Quantity
		if qty == 0 {
			qty = 1
		}
		items = append(items, dao.OrderItem{
			Name:     in.Name,
			Quantity: qty,
			Price:    in.Price,
			Options:  in.Options,
			Note:     in.Note,
		})
	}
	return items
}
