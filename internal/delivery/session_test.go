package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "himpana/pkg/domain-errors"
	"himpana/pkg/sentinel"
)

// fakeTransport scripts connect/send outcomes and exposes the event channel
// for disconnect injection.
type fakeTransport struct {
	mu           sync.Mutex
	connectErrs  []error
	connectCalls int
	sendErrs     []error
	sendCalls    int
	events       chan Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 4)}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) Send(context.Context, string, []byte, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) queueSendErrs(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErrs = append(f.sendErrs, errs...)
}

func (f *fakeTransport) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

func (f *fakeTransport) connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls
}

func (f *fakeTransport) Events() <-chan Event { return f.events }
func (f *fakeTransport) Close() error         { return nil }

func newTestSession(t *testing.T, transport Transport) (*Session, context.CancelFunc) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := NewSession(transport, Config{
		MaxAttempts:  3,
		BackoffStep:  0,
		RestartDelay: 10 * time.Millisecond,
	}, logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = session.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return session, cancel
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want },
		2*time.Second, time.Millisecond, "session never reached %s", want)
}

func TestSessionBecomesReady(t *testing.T) {
	transport := newFakeTransport()
	session, _ := newTestSession(t, transport)

	waitForState(t, session, StateReady)
	assert.Equal(t, 1, transport.connects())
}

func TestSendFailsFastWhenNotReady(t *testing.T) {
	transport := newFakeTransport()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := NewSession(transport, Config{MaxAttempts: 3}, logger, nil)

	// Never started: still Disconnected.
	err := session.Send(context.Background(), "628123", []byte("img"), "caption")
	require.Error(t, err)
	assert.True(t, derrors.Is(err, derrors.CodeChannelNotReady))
	assert.Equal(t, 0, transport.sent())
}

func TestSendRetriesTransientThenSucceeds(t *testing.T) {
	transport := newFakeTransport()
	transport.queueSendErrs(
		fmt.Errorf("%w: gateway status 502", sentinel.ErrTransient),
		fmt.Errorf("%w: gateway status 502", sentinel.ErrTransient),
	)
	session, _ := newTestSession(t, transport)
	waitForState(t, session, StateReady)

	err := session.Send(context.Background(), "628123", []byte("img"), "caption")
	require.NoError(t, err)
	assert.Equal(t, 3, transport.sent())
}

func TestSendExhaustsRetries(t *testing.T) {
	transport := newFakeTransport()
	transport.queueSendErrs(
		fmt.Errorf("%w: 1", sentinel.ErrTransient),
		fmt.Errorf("%w: 2", sentinel.ErrTransient),
		fmt.Errorf("%w: 3", sentinel.ErrTransient),
	)
	session, _ := newTestSession(t, transport)
	waitForState(t, session, StateReady)

	err := session.Send(context.Background(), "628123", []byte("img"), "caption")
	require.Error(t, err)
	assert.True(t, derrors.Is(err, derrors.CodeDelivery))
	assert.Equal(t, 3, transport.sent())
}

func TestSendDoesNotRetryPermanentErrors(t *testing.T) {
	transport := newFakeTransport()
	transport.queueSendErrs(fmt.Errorf("gateway rejected message: unknown target"))
	session, _ := newTestSession(t, transport)
	waitForState(t, session, StateReady)

	err := session.Send(context.Background(), "628123", []byte("img"), "caption")
	require.Error(t, err)
	assert.True(t, derrors.Is(err, derrors.CodeDelivery))
	assert.Equal(t, 1, transport.sent())
}

func TestDisconnectDegradesThenReconnects(t *testing.T) {
	transport := newFakeTransport()
	session, _ := newTestSession(t, transport)
	waitForState(t, session, StateReady)

	transport.events <- Event{Type: EventDisconnected, Reason: "device logged out"}

	// Degraded sends fail fast; the scheduled restart brings the session
	// back without outside help.
	require.Eventually(t, func() bool {
		st := session.State()
		return st == StateDegraded || st == StateInitializing || st == StateReady
	}, time.Second, time.Millisecond)

	waitForState(t, session, StateReady)
	assert.GreaterOrEqual(t, transport.connects(), 2)
}

func TestSendWhileDegradedFailsFast(t *testing.T) {
	transport := newFakeTransport()
	// First reconnect attempt fails so the session lingers off-Ready long
	// enough to observe.
	transport.mu.Lock()
	transport.connectErrs = []error{nil, fmt.Errorf("%w: still down", sentinel.ErrTransient)}
	transport.mu.Unlock()

	session, _ := newTestSession(t, transport)
	waitForState(t, session, StateReady)

	transport.events <- Event{Type: EventDisconnected}
	require.Eventually(t, func() bool { return session.State() != StateReady },
		time.Second, time.Millisecond)

	before := transport.sent()
	err := session.Send(context.Background(), "628123", []byte("img"), "caption")
	require.Error(t, err)
	assert.True(t, derrors.Is(err, derrors.CodeChannelNotReady))
	assert.Equal(t, before, transport.sent())
}

func TestSessionClosedFaultTriggersRestart(t *testing.T) {
	transport := newFakeTransport()
	transport.queueSendErrs(
		fmt.Errorf("%w: execution context destroyed", sentinel.ErrSessionClosed),
		fmt.Errorf("%w: execution context destroyed", sentinel.ErrSessionClosed),
		fmt.Errorf("%w: execution context destroyed", sentinel.ErrSessionClosed),
	)
	session, _ := newTestSession(t, transport)
	waitForState(t, session, StateReady)

	err := session.Send(context.Background(), "628123", []byte("img"), "caption")
	require.Error(t, err)
	// Depending on how fast the restart lands, the last attempt sees either
	// the exhausted retries or an already-degraded channel.
	assert.True(t, derrors.Is(err, derrors.CodeDelivery) || derrors.Is(err, derrors.CodeChannelNotReady))

	// The restart request rebuilds the session.
	require.Eventually(t, func() bool { return transport.connects() >= 2 },
		2*time.Second, time.Millisecond)
	waitForState(t, session, StateReady)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "degraded", StateDegraded.String())
}
