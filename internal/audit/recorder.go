package audit

import (
	"context"
	"log/slog"
	"time"
)

// Recorder buffers events between domain code and the publisher. Emit never
// blocks: when the buffer is full the event is dropped and logged, because an
// enrollment must not stall on the audit pipeline.
type Recorder struct {
	inbox     chan Event
	publisher Publisher
	logger    *slog.Logger
}

func NewRecorder(publisher Publisher, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	return &Recorder{
		inbox:     make(chan Event, buffer),
		publisher: publisher,
		logger:    logger,
	}
}

// Emit queues one event. A nil Recorder (audit disabled) is a no-op.
func (r *Recorder) Emit(ctx context.Context, event Event) {
	if r == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case r.inbox <- event:
	default:
		r.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"type", string(event.Type),
			"retirement_number", event.RetirementNumber,
		)
	}
}

// Run drains the inbox until ctx ends. Publish failures are logged and the
// event dropped; the audit trail is best-effort.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case event := <-r.inbox:
			r.publish(ctx, event)
		}
	}
}

// drain flushes whatever is buffered at shutdown, bounded so Run returns
// promptly.
func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-r.inbox:
			r.publish(ctx, event)
		default:
			return
		}
	}
}

func (r *Recorder) publish(ctx context.Context, event Event) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "audit publish failed, dropping event",
			"type", string(event.Type),
			"retirement_number", event.RetirementNumber,
			"error", err.Error(),
		)
	}
}
