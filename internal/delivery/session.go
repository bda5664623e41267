package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"himpana/internal/platform/metrics"
	derrors "himpana/pkg/domain-errors"
	"himpana/pkg/retry"
	"himpana/pkg/sentinel"
)

// State is the delivery session's lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateInitializing
	StateReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Sender is the contract the orchestrator consumes. Nothing outside this
// package touches transport internals.
type Sender interface {
	Send(ctx context.Context, recipient string, media []byte, caption string) error
}

// Session owns the single process-wide connection to the messaging transport.
// It walks Disconnected → Initializing → Ready, drops to Degraded on a
// transport-reported disconnect, and schedules a restart after a fixed delay.
// While not Ready, Send fails fast instead of queuing.
type Session struct {
	transport    Transport
	logger       *slog.Logger
	metrics      *metrics.Metrics
	sendRetry    retry.Policy
	restartDelay time.Duration

	mu    sync.RWMutex
	state State

	// restartCh carries out-of-band restart requests raised by send attempts
	// that hit a session-closed fault. Buffered so senders never block.
	restartCh chan struct{}
}

// Config bounds the session's retry and restart behavior.
type Config struct {
	MaxAttempts  int
	BackoffStep  time.Duration
	RestartDelay time.Duration
}

func NewSession(transport Transport, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Session {
	return &Session{
		transport: transport,
		logger:    logger,
		metrics:   m,
		sendRetry: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     retry.Linear(cfg.BackoffStep),
			Retryable: func(err error) bool {
				return errors.Is(err, sentinel.ErrTransient) || errors.Is(err, sentinel.ErrSessionClosed)
			},
		},
		restartDelay: cfg.RestartDelay,
		state:        StateDisconnected,
		restartCh:    make(chan struct{}, 1),
	}
}

// State returns the current session state; all in-flight Send calls observe
// transitions immediately.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(ctx context.Context, next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	if prev != next {
		s.logger.InfoContext(ctx, "delivery session state changed",
			"from", prev.String(),
			"to", next.String(),
		)
	}
	s.metrics.SetSessionState(int(next))
}

// Run drives the session lifecycle until ctx is cancelled. It belongs in an
// errgroup next to the HTTP server.
func (s *Session) Run(ctx context.Context) error {
	for {
		s.setState(ctx, StateInitializing)

		if err := s.transport.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				s.setState(ctx, StateDisconnected)
				return ctx.Err()
			}
			s.logger.WarnContext(ctx, "transport handshake failed",
				"error", err.Error(),
				"retry_in", s.restartDelay.String(),
			)
			s.setState(ctx, StateDisconnected)
			if err := s.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		s.setState(ctx, StateReady)

		if err := s.watch(ctx); err != nil {
			s.setState(ctx, StateDisconnected)
			_ = s.transport.Close()
			return err
		}

		// Transport reported a disconnect or a send attempt demanded a
		// restart: degrade, wait the fixed delay, reconnect.
		s.setState(ctx, StateDegraded)
		s.metrics.IncSessionRestart()
		if err := s.sleep(ctx); err != nil {
			s.setState(ctx, StateDisconnected)
			_ = s.transport.Close()
			return err
		}
	}
}

// watch blocks while the session is Ready. A nil return means the session
// must be rebuilt; an error means ctx ended.
func (s *Session) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.transport.Events():
			switch ev.Type {
			case EventDisconnected:
				s.logger.WarnContext(ctx, "transport reported disconnect", "reason", ev.Reason)
				return nil
			case EventReady:
				// Already ready; duplicate handshake notifications are fine.
			}
		case <-s.restartCh:
			s.logger.WarnContext(ctx, "session restart requested by sender")
			return nil
		}
	}
}

func (s *Session) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.restartDelay):
		return nil
	}
}

// requestRestart nudges Run to rebuild the session without waiting for the
// heartbeat to notice.
func (s *Session) requestRestart() {
	select {
	case s.restartCh <- struct{}{}:
	default:
	}
}

// Send delivers one media message. It fails fast with channel_not_ready when
// the session is not Ready, retries transient faults with backoff, and
// triggers an out-of-band session restart on session-closed faults. Exhausted
// retries surface as a delivery error for the orchestrator to downgrade.
func (s *Session) Send(ctx context.Context, recipient string, media []byte, caption string) error {
	if s.State() != StateReady {
		return derrors.Newf(derrors.CodeChannelNotReady, "delivery channel is %s", s.State())
	}

	err := s.sendRetry.Do(ctx, func(attempt int) error {
		if s.State() != StateReady {
			return derrors.Newf(derrors.CodeChannelNotReady, "delivery channel is %s", s.State())
		}

		s.metrics.IncDeliveryAttempt()
		err := s.transport.Send(ctx, recipient, media, caption)
		if err != nil {
			s.logger.WarnContext(ctx, "send attempt failed",
				"attempt", attempt,
				"recipient", recipient,
				"error", err.Error(),
			)
			if errors.Is(err, sentinel.ErrSessionClosed) {
				s.requestRestart()
			}
		}
		return err
	})
	if err != nil {
		if derrors.Is(err, derrors.CodeChannelNotReady) {
			return err
		}
		return derrors.Wrap(derrors.CodeDelivery, "card delivery failed", err)
	}
	return nil
}
