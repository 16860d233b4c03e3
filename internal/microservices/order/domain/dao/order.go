package dao

import (
	"time"

	"github.com/shopspring/decimal"

	"print-dispatcher/internal/domain"
)

type Order struct {
	ID            int64              `json:"id"`
	OrderNumber   string             `json:"order_number"`
	Items         []OrderItem        `json:"items"`
	Customer      Customer           `json:"customer_info"`
	TotalPrice    decimal.Decimal    `json:"total_price"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	PrintStatus   domain.PrintStatus `json:"print_status"`
	CreatedAt     time.Time          `json:"created_at"`
}

type OrderItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Options  []string        `json:"options,omitempty"`
	Note     string          `json:"note,omitempty"`
}

type Customer struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Total is the sum of quantity times unit price.
func Total(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
