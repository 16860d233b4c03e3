package feed

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const defaultRetryDelay = 2 * time.Second

// Listener subscribes to the insert trigger's NOTIFY channel on a dedicated
// connection and reconnects after any failure.
type Listener struct {
	DSN        string
	Channel    string
	RetryDelay time.Duration
}

func NewListener(dsn, channel string) *Listener {
	if channel == "" {
		channel = "orders_inserted"
	}
	return &Listener{DSN: dsn, Channel: channel, RetryDelay: defaultRetryDelay}
}

func (l *Listener) Name() string { return "postgres" }

func (l *Listener) Run(ctx context.Context, h Handler) error {
	for {
		err := l.listen(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		log.Error("feed_listen_failed", err, map[string]any{"channel": l.Channel, "retry_in": l.RetryDelay.String()})
		select {
		case <-time.After(l.RetryDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Listener) listen(ctx context.Context, h Handler) error {
	conn, err := pgx.Connect(ctx, l.DSN)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.Channel}.Sanitize()); err != nil {
		return err
	}
	log.Info("feed_subscribed", map[string]any{"source": "postgres", "channel": l.Channel})

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := dispatch(ctx, []byte(n.Payload), h); err != nil {
			// The sweep picks the row up regardless.
			log.Warn("feed_payload_dropped", map[string]any{"channel": n.Channel, "error": err.Error()})
		}
	}
}
