package audit

import (
	"context"
	"log/slog"
)

// Sink is the external destination the worker drains events into.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Worker consumes audit events from a channel and forwards them to the
// sink. Delivery failures are logged, not retried: the store already holds
// the authoritative copy.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Deliver(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit delivery failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
