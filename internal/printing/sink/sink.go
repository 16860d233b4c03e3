package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"print-dispatcher/internal/common/logger"
)

// Sink delivers an encoded ticket to a printer device.
type Sink interface {
	Send(ctx context.Context, device string, data []byte) error
}

type Func func(ctx context.Context, device string, data []byte) error

func (f Func) Send(ctx context.Context, device string, data []byte) error {
	return f(ctx, device, data)
}

// Device is one printer as reported by the print system.
type Device struct {
	Name   string `json:"name"`
	Port   string `json:"port"`
	Status string `json:"status,omitempty"`
}

// Enumerator lists the printers visible to this host.
type Enumerator interface {
	Printers(ctx context.Context) ([]Device, error)
}

type Static []Device

func (s Static) Printers(context.Context) ([]Device, error) { return append([]Device(nil), s...), nil }

var ErrTimeout = errors.New("printer delivery timed out")

// VirtualMarker identifies print-to-file devices such as "Microsoft Print to
// PDF". Deliveries to them are simulated.
const VirtualMarker = "PDF"

func IsVirtual(device string) bool {
	return strings.Contains(strings.ToUpper(device), VirtualMarker)
}

// Simulated short-circuits virtual devices and forwards everything else.
type Simulated struct {
	Inner Sink
	lg    *logger.Logger
}

func NewSimulated(inner Sink) *Simulated {
	return &Simulated{Inner: inner, lg: logger.New("printer-sink")}
}

func (s *Simulated) Send(ctx context.Context, device string, data []byte) error {
	if IsVirtual(device) {
		s.lg.Info("print_simulated", map[string]any{"printer": device, "bytes": len(data)})
		return nil
	}
	return s.Inner.Send(ctx, device, data)
}

// Timeout bounds every delivery. The inner send runs on its own goroutine so
// a transport that ignores ctx still cannot hold the caller past the limit.
type Timeout struct {
	Inner Sink
	Limit time.Duration
}

func (t Timeout) Send(ctx context.Context, device string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.Limit)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- t.Inner.Send(ctx, device, data) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %v", ErrTimeout, t.Limit, err)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, t.Limit)
		}
		return ctx.Err()
	}
}

// Mux routes tcp://host:port devices to the raw network transport and every
// other name to the local spooler.
type Mux struct {
	Network Sink
	Spooler Sink
}

func (m Mux) Send(ctx context.Context, device string, data []byte) error {
	if strings.HasPrefix(strings.ToLower(device), tcpScheme) {
		return m.Network.Send(ctx, device, data)
	}
	return m.Spooler.Send(ctx, device, data)
}

// NewDefault is the production chain: simulation check, then a bounded
// attempt through the network or CUPS transport.
func NewDefault(limit time.Duration) Sink {
	return NewSimulated(Timeout{
		Inner: Mux{Network: TCP{}, Spooler: NewCUPS()},
		Limit: limit,
	})
}
