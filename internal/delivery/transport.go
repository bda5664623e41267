package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"himpana/pkg/sentinel"
)

// EventType identifies asynchronous transport notifications.
type EventType int

const (
	EventReady EventType = iota
	EventDisconnected
)

// Event is an asynchronous transport notification the session subscribes to.
type Event struct {
	Type   EventType
	Reason string
}

// Transport is the messaging channel the session manages. Connect performs
// the handshake; Send pushes one media message; Events surfaces asynchronous
// ready/disconnected notifications.
//
// Error contract for Send: wrap sentinel.ErrTransient for faults worth
// retrying, sentinel.ErrSessionClosed when the underlying session is gone and
// must be rebuilt; anything else is permanent.
type Transport interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, recipient string, media []byte, caption string) error
	Events() <-chan Event
	Close() error
}

// GatewayTransport talks to a Fonnte-style WhatsApp HTTP gateway: multipart
// {target, message, file} against /send, device status against /device. A
// heartbeat loop polls the device endpoint and reports disconnects through
// the events channel.
type GatewayTransport struct {
	baseURL      string
	token        string
	pingInterval time.Duration
	client       *http.Client
	logger       *slog.Logger

	events chan Event

	mu       sync.Mutex
	stopPing chan struct{}
}

func NewGatewayTransport(baseURL, token string, pingInterval time.Duration, logger *slog.Logger) *GatewayTransport {
	return &GatewayTransport{
		baseURL:      baseURL,
		token:        token,
		pingInterval: pingInterval,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
		events:       make(chan Event, 4),
	}
}

// gatewayResponse is the subset of the gateway's JSON reply both endpoints
// share.
type gatewayResponse struct {
	Status       bool   `json:"status"`
	Reason       string `json:"reason"`
	DeviceStatus string `json:"device_status"`
}

// Connect verifies the device session with the gateway and starts the
// heartbeat.
func (t *GatewayTransport) Connect(ctx context.Context) error {
	if err := t.ping(ctx); err != nil {
		return err
	}

	// Restart the heartbeat on every successful handshake; a previous loop
	// exits after reporting a disconnect.
	t.mu.Lock()
	if t.stopPing != nil {
		close(t.stopPing)
	}
	t.stopPing = make(chan struct{})
	go t.heartbeat(t.stopPing)
	t.mu.Unlock()

	select {
	case t.events <- Event{Type: EventReady}:
	default:
	}
	return nil
}

func (t *GatewayTransport) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/device", nil)
	if err != nil {
		return fmt.Errorf("build device request: %w", err)
	}
	req.Header.Set("Authorization", t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: device ping: %v", sentinel.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := decodeGatewayResponse(resp)
	if err != nil {
		return err
	}
	if body.DeviceStatus != "connect" {
		return fmt.Errorf("%w: device status %q", sentinel.ErrSessionClosed, body.DeviceStatus)
	}
	return nil
}

// heartbeat polls the device endpoint and emits a disconnect event when the
// gateway reports the session gone.
func (t *GatewayTransport) heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := t.ping(ctx)
			cancel()
			if err != nil {
				t.logger.Warn("gateway heartbeat failed", "error", err.Error())
				select {
				case t.events <- Event{Type: EventDisconnected, Reason: err.Error()}:
				default:
				}
				return
			}
		}
	}
}

// Send posts the card image to the gateway as a multipart form.
func (t *GatewayTransport) Send(ctx context.Context, recipient string, media []byte, caption string) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("target", recipient); err != nil {
		return fmt.Errorf("write target field: %w", err)
	}
	if err := form.WriteField("message", caption); err != nil {
		return fmt.Errorf("write message field: %w", err)
	}
	part, err := form.CreateFormFile("file", "idcard.png")
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(media); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/send", &buf)
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send: %v", sentinel.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := decodeGatewayResponse(resp)
	if err != nil {
		return err
	}
	if !body.Status {
		return fmt.Errorf("gateway rejected message: %s", body.Reason)
	}
	return nil
}

func decodeGatewayResponse(resp *http.Response) (*gatewayResponse, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read gateway response: %v", sentinel.ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: gateway rejected token", sentinel.ErrSessionClosed)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: gateway status %d", sentinel.ErrTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("gateway status %d: %s", resp.StatusCode, raw)
	}

	var body gatewayResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: decode gateway response: %v", sentinel.ErrTransient, err)
	}
	return &body, nil
}

func (t *GatewayTransport) Events() <-chan Event {
	return t.events
}

// Close stops the heartbeat. The gateway holds the device session server-side;
// there is nothing to tear down over HTTP.
func (t *GatewayTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopPing != nil {
		close(t.stopPing)
		t.stopPing = nil
	}
	return nil
}
