package audit

import (
	"context"
	"log/slog"

	id "depositgate/pkg/domain"
	"depositgate/pkg/requestcontext"
)

// Publisher records audit events. Every event lands in the store; when a
// worker inbox is attached the event is also queued for external delivery.
// Emit never fails the caller's operation: delivery problems are logged and
// swallowed.
type Publisher struct {
	store  Store
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type PublisherOption func(*Publisher)

// WithInbox attaches the worker queue that feeds the external sink.
func WithInbox(inbox chan<- Event) PublisherOption {
	return func(p *Publisher) { p.inbox = inbox }
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// Emit records an event. Safe on a nil publisher so services can treat audit
// as optional.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"error", err,
		)
	}

	if p.inbox == nil {
		return
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
		)
	}
}

// List returns the stored events for one owner.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}
