// Package feed delivers newly inserted orders to the dispatcher as they are
// written. It is a latency optimization: the poll sweep still finds every
// row a feed misses.
package feed

import (
	"context"
	"errors"
	"fmt"

	"print-dispatcher/internal/common/logger"
	"print-dispatcher/internal/domain"
)

var ErrBadPayload = errors.New("undecodable insert payload")

type Handler func(ctx context.Context, ev domain.InsertEvent)

type Source interface {
	Name() string
	Run(ctx context.Context, h Handler) error
}

func dispatch(ctx context.Context, payload []byte, h Handler) error {
	ev, err := domain.ParseInsertEvent(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	h(ctx, ev)
	return nil
}

// None is the poll-only mode: it never produces events.
type None struct{}

func (None) Name() string { return "none" }

func (None) Run(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return nil
}

var log = logger.New("feed")
