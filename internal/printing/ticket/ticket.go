package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"print-dispatcher/internal/domain"
)

const rule = "--------------------------------"

// Ticket is the encoded output for one role. It is built fresh for every
// print attempt.
type Ticket struct {
	Role  domain.Role
	Bytes []byte
}

type Options struct {
	Brand          []string
	Footer         string
	Currency       string
	DefaultPayment string
}

func DefaultOptions() Options {
	return Options{
		Brand:          []string{"MITAKE RAMEN", "TICKET CLIENT"},
		Footer:         "Merci de votre visite !",
		Currency:       "EUR",
		DefaultPayment: "CB / Especes",
	}
}

// KitchenCommands lays out the kitchen ticket: quantities and names, options
// and notes, no prices.
func KitchenCommands(o domain.Order, now time.Time) []Command {
	e := NewEncoder().Initialize()
	e.Align(AlignCenter).Size(2, 2).Line("BON CUISINE").Size(1, 1).Line(rule).Align(AlignLeft)

	e.Line("CMD: " + o.Ref())
	e.Line("Heure: " + now.Format("15:04:05"))
	e.Line(rule)

	if len(o.Items) == 0 {
		e.Line("Aucun article.")
	}
	for _, it := range o.Items {
		e.Bold(true).Text(qtyPrefix(it)).Bold(false).Line(itemName(it))
		for _, opt := range it.Options {
			e.Line("   + " + opt)
		}
		if it.Note != "" {
			e.Invert(true).Text("   NOTE: " + it.Note + " ").Invert(false).Newline()
		}
		e.Newline()
	}

	e.Line(rule).Newline().Newline().Cut()
	return e.Commands()
}

// CashierCommands lays out the customer receipt with prices and total.
func CashierCommands(o domain.Order, now time.Time, opts Options) []Command {
	currency := opts.Currency
	if currency == "" {
		currency = "EUR"
	}

	e := NewEncoder().Initialize()
	e.Align(AlignCenter)
	for _, b := range opts.Brand {
		e.Line(b)
	}
	e.Line(rule).Align(AlignLeft)

	e.Line("CMD: " + o.Ref())
	e.Line("Date: " + now.Format("02/01/2006 15:04:05"))
	e.Line(rule)

	if len(o.Items) == 0 {
		e.Line("Aucun article.")
	}
	for _, it := range o.Items {
		e.Line(itemLine(it))
		e.Align(AlignRight).Line(Money(it.Price) + " " + currency).Align(AlignLeft)
		for _, opt := range it.Options {
			e.Line("   + " + opt)
		}
	}
	e.Line(rule)

	e.Align(AlignRight).Bold(true).Line("TOTAL: " + Money(o.TotalPrice) + " " + currency).Bold(false).Newline()

	payment := strings.TrimSpace(o.PaymentMethod)
	if payment == "" {
		payment = opts.DefaultPayment
	}
	e.Align(AlignLeft).Line("Paiement: " + payment)

	if !o.Customer.Empty() {
		e.Line(rule)
		if o.Customer.Name != "" {
			e.Line("Client: " + o.Customer.Name)
		}
		if o.Customer.Phone != "" {
			e.Line("Tel: " + o.Customer.Phone)
		}
	}

	e.Newline().Align(AlignCenter)
	if opts.Footer != "" {
		e.Line(opts.Footer)
	}
	e.Newline().Newline().Cut()
	return e.Commands()
}

// TestCommands is the connection check ticket printed by test-print and the
// startup self test.
func TestCommands(now time.Time) []Command {
	sep := "================================"
	return NewEncoder().Initialize().
		Align(AlignCenter).
		Line(sep).
		Line("TEST DE CONNEXION OK").
		Line(sep).
		Newline().
		Line("Heure: " + now.Format("02/01/2006 15:04:05")).
		Newline().
		Line("Si ce ticket s'imprime,").
		Line("le driver est correct.").
		Newline().
		Line(sep).
		Newline().
		Newline().
		Cut().
		Commands()
}

func RenderKitchen(o domain.Order, now time.Time) []byte {
	return Encode(KitchenCommands(o, now))
}

func RenderCashier(o domain.Order, now time.Time, opts Options) []byte {
	return Encode(CashierCommands(o, now, opts))
}

// Money formats an optional amount with two decimals; nil prints as 0.00.
func Money(v *float64) string {
	if v == nil {
		return "0.00"
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

func itemLine(it domain.Item) string {
	return qtyPrefix(it) + itemName(it)
}

func qtyPrefix(it domain.Item) string { return fmt.Sprintf("%dx ", it.Quantity) }

func itemName(it domain.Item) string {
	if it.Name == "" {
		return "?"
	}
	return it.Name
}

// Renderer binds layout options and a clock so callers only pass the order.
type Renderer struct {
	opts Options
	now  func() time.Time
}

func NewRenderer(opts Options, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{opts: opts, now: now}
}

func (r *Renderer) Render(role domain.Role, o domain.Order) (Ticket, error) {
	now := r.now()
	switch role {
	case domain.RoleKitchen:
		return Ticket{Role: role, Bytes: RenderKitchen(o, now)}, nil
	case domain.RoleCashier:
		return Ticket{Role: role, Bytes: RenderCashier(o, now, r.opts)}, nil
	}
	return Ticket{}, fmt.Errorf("unknown ticket role %q", role)
}

func (r *Renderer) Test() []byte { return Encode(TestCommands(r.now())) }
