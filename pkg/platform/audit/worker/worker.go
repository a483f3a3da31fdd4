package worker

import (
	"context"
	"log/slog"

	audit "badgeissuer/pkg/platform/audit"
)

// Sink accepts audit events. Sinks need not be queryable.
type Sink interface {
	Append(ctx context.Context, event audit.Event) error
}

// Worker moves audit events from one store to another. The server uses it to
// forward events captured in memory to the Kafka sink without putting the
// broker on the request path.
type Worker struct {
	store  Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run forwards events until ctx is cancelled or the inbox is closed. Failed
// appends are logged and skipped; the sink is best-effort.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "audit sink append failed",
					"action", event.Action,
					"request_id", event.RequestID,
					"error", err,
				)
			}
		}
	}
}

// Tee is an audit.Store that appends to a primary store and offers a copy to
// a channel for a Worker to forward. Offers never block.
type Tee struct {
	primary audit.Store
	out     chan audit.Event
}

func NewTee(primary audit.Store, size int) *Tee {
	return &Tee{primary: primary, out: make(chan audit.Event, size)}
}

func (t *Tee) Append(ctx context.Context, event audit.Event) error {
	if err := t.primary.Append(ctx, event); err != nil {
		return err
	}
	select {
	case t.out <- event:
	default:
	}
	return nil
}

func (t *Tee) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	return t.primary.ListBySubject(ctx, subject)
}

// Events is the channel a Worker drains.
func (t *Tee) Events() <-chan audit.Event {
	return t.out
}
