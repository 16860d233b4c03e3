package models

import (
	"time"

	"print-dispatcher/internal/domain"
)

type DeliveryResult string

type Delivery struct {
	Role    domain.Role    `json:"role"`
	Printer string         `json:"printer,omitempty"`
	Result  DeliveryResult `json:"result"`
	Error   string         `json:"error,omitempty"`
}

// PrintAttempt is one pass of the dispatcher over an order.
type PrintAttempt struct {
	EventID     string             `json:"event_id"`
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number,omitempty"`
	Source      string             `json:"source"`
	OldStatus   domain.PrintStatus `json:"old_status"`
	NewStatus   domain.PrintStatus `json:"new_status"`
	Deliveries  []Delivery         `json:"deliveries"`
	Instance    string             `json:"instance,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// Failed reports whether any printer rejected or timed out.
func (a PrintAttempt) Failed() bool {
	for _, d := range a.Deliveries {
		if d.Result == "failed" {
			return true
		}
	}
	return false
}

type HistoryView struct {
	OrderID  int64          `json:"order_id"`
	Attempts []PrintAttempt `json:"attempts"`
	Failures int            `json:"failures"`
}
