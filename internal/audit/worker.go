package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Worker consumes audit events from a channel and persists them, decoupling
// request latency from the sink's write latency.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				// Audit is best-effort: log and keep draining.
				w.logger.ErrorContext(ctx, "audit append failed", "action", event.Action, "error", err)
			}
		}
	}
}

// ChannelPublisher feeds the worker. Emit drops events rather than blocking a
// request when the inbox is full.
type ChannelPublisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewChannelPublisher(inbox chan<- Event, logger *slog.Logger) *ChannelPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelPublisher{inbox: inbox, logger: logger}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event", "action", event.Action)
		return nil
	}
}
