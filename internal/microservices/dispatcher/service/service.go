package service

import (
	"context"
	"time"

	"print-dispatcher/internal/domain"
)

// JobSource records which delivery channel produced a job.
type JobSource string

const (
	SourceLive     JobSource = "live"
	SourcePoll     JobSource = "poll"
	SourceOperator JobSource = "operator"
)

type Job struct {
	Order  domain.Order
	Source JobSource
}

// BindingsProvider yields the current role to printer bindings. The printer
// resolver implements it.
type BindingsProvider interface {
	Current(ctx context.Context) domain.Bindings
}

// StaticBindings is a fixed BindingsProvider.
type StaticBindings domain.Bindings

func (s StaticBindings) Current(context.Context) domain.Bindings { return domain.Bindings(s) }

type ReconcilerInterface interface {
	Run(ctx context.Context, bindings BindingsProvider) error
	OnLiveInsert(ctx context.Context, ev domain.InsertEvent)
	RunPollSweep(ctx context.Context) error
	RequestReprint(ctx context.Context, id int64, target string) (domain.PrintStatus, error)
}

type Config struct {
	PollInterval    time.Duration
	DeliveryTimeout time.Duration
	Workers         int
	QueueSize       int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 5 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	return c
}
