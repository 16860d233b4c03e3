package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Order struct {
	ID            int64        `json:"id"`
	OrderNumber   string       `json:"order_number,omitempty"`
	Items         []Item       `json:"items"`
	Customer      CustomerInfo `json:"customer_info"`
	TotalPrice    *float64     `json:"total_price,omitempty"`
	PaymentMethod string       `json:"payment_method,omitempty"`
	PrintStatus   PrintStatus  `json:"print_status"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Ref is how tickets and logs name an order: its number when set, else its id.
func (o Order) Ref() string {
	if strings.TrimSpace(o.OrderNumber) != "" {
		return o.OrderNumber
	}
	return strconv.FormatInt(o.ID, 10)
}

type Item struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    *float64 `json:"price,omitempty"`
	Options  []string `json:"options,omitempty"`
	Note     string   `json:"notes,omitempty"`
}

func (it *Item) UnmarshalJSON(b []byte) error {
	var aux struct {
		Name     json.RawMessage   `json:"name"`
		Quantity json.RawMessage   `json:"quantity"`
		Price    json.RawMessage   `json:"price"`
		Options  []json.RawMessage `json:"options"`
		Notes    json.RawMessage   `json:"notes"`
		Note     json.RawMessage   `json:"note"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*it = Item{Name: flexString(aux.Name), Quantity: 1}
	// Zero or missing quantity prints as one.
	if q := flexFloat(aux.Quantity); q != nil && int(*q) != 0 {
		it.Quantity = int(*q)
	}
	it.Price = flexFloat(aux.Price)
	for _, o := range aux.Options {
		if s := flexString(o); s != "" {
			it.Options = append(it.Options, s)
		}
	}
	it.Note = flexString(aux.Notes)
	if it.Note == "" {
		it.Note = flexString(aux.Note)
	}
	return nil
}

type CustomerInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c CustomerInfo) Empty() bool { return c.Name == "" && c.Phone == "" }

func (c *CustomerInfo) UnmarshalJSON(b []byte) error {
	var aux struct {
		Name  json.RawMessage `json:"name"`
		Phone json.RawMessage `json:"phone"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = CustomerInfo{Name: flexString(aux.Name), Phone: flexString(aux.Phone)}
	return nil
}

// OrderRow is the wire shape of an orders row as it leaves the store: a
// NOTIFY payload, an AMQP message body, or a scanned record. items and
// customer_info stay raw until DecodeItems/DecodeCustomer run on them.
type OrderRow struct {
	ID            json.RawMessage `json:"id"`
	OrderNumber   json.RawMessage `json:"order_number"`
	Items         json.RawMessage `json:"items"`
	CustomerInfo  json.RawMessage `json:"customer_info"`
	TotalPrice    json.RawMessage `json:"total_price"`
	PaymentMethod json.RawMessage `json:"payment_method"`
	PrintStatus   json.RawMessage `json:"print_status"`
	CreatedAt     json.RawMessage `json:"created_at"`
	Partial       bool            `json:"partial"`
}

// InsertEvent is one change-feed notification. A partial event carries only
// the id and status, and the row has to be re-read before printing.
type InsertEvent struct {
	Order   Order
	Partial bool
}

// ParseInsertEvent decodes a change-feed payload.
func ParseInsertEvent(b []byte) (InsertEvent, error) {
	var marker struct {
		Partial bool `json:"partial"`
	}
	_ = json.Unmarshal(b, &marker)
	o, err := ParseOrderRow(b)
	if err != nil {
		return InsertEvent{}, err
	}
	return InsertEvent{Order: o, Partial: marker.Partial}, nil
}

// ParseOrderRow decodes a JSON row. Only a missing or non-numeric id is an
// error; every other field degrades to its zero value.
func ParseOrderRow(b []byte) (Order, error) {
	var row OrderRow
	if err := json.Unmarshal(b, &row); err != nil {
		return Order{}, fmt.Errorf("decode order row: %w", err)
	}
	id := flexFloat(row.ID)
	if id == nil {
		return Order{}, fmt.Errorf("decode order row: missing id")
	}
	o := Order{
		ID:            int64(*id),
		OrderNumber:   flexString(row.OrderNumber),
		Items:         DecodeItems(row.Items),
		Customer:      DecodeCustomer(row.CustomerInfo),
		TotalPrice:    flexFloat(row.TotalPrice),
		PaymentMethod: flexString(row.PaymentMethod),
		PrintStatus:   PrintStatus(flexString(row.PrintStatus)),
	}
	if ts := flexString(row.CreatedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			o.CreatedAt = t
		} else if t, err := time.Parse("2006-01-02T15:04:05.999999", ts); err == nil {
			o.CreatedAt = t
		}
	}
	return o, nil
}

// LenientFloat converts a scanned column value to a number. Text that does
// not parse yields nil, which renders as zero.
func LenientFloat(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case float32:
		f := float64(x)
		return &f
	case int64:
		f := float64(x)
		return &f
	case int:
		f := float64(x)
		return &f
	case []byte:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	}
	return nil
}

func parseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LenientTime converts a scanned column value to a time. Unparseable input
// yields the zero time.
func LenientTime(v any) time.Time {
	var s string
	switch x := v.(type) {
	case time.Time:
		return x
	case []byte:
		s = string(x)
	case string:
		s = x
	default:
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func flexString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var obj struct {
		Name json.RawMessage `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return flexString(obj.Name)
	}
	return ""
}

func flexFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &f
		}
	}
	return nil
}
