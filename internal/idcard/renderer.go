// Package idcard holds the card rendering contract and the durable storage
// for rendered images. How the card looks is the renderer's business; this
// service only moves bytes.
package idcard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CardData is everything the renderer needs to compose a card.
type CardData struct {
	Name             string `json:"name"`
	RetirementNumber string `json:"retirement_number"`
	CardNumber       string `json:"card_number"`
	BirthDate        string `json:"birth_date"`
	City             string `json:"city"`
}

// Renderer produces the card image bytes for a member. It is an external
// collaborator: implementations hold no state between calls.
type Renderer interface {
	Render(ctx context.Context, card CardData) ([]byte, error)
}

// HTTPRenderer calls an external rendering service: card data in, PNG out.
type HTTPRenderer struct {
	url    string
	client *http.Client
}

func NewHTTPRenderer(url string) *HTTPRenderer {
	return &HTTPRenderer{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, card CardData) ([]byte, error) {
	body, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("marshal card data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered image: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("renderer returned empty image")
	}
	return img, nil
}

// stubPNG is a valid 1x1 PNG, enough for local runs without a renderer.
var stubPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// StubRenderer returns a fixed image with a configurable latency to mimic a
// real collaborator. Used in dev mode and tests.
type StubRenderer struct {
	Latency time.Duration
}

func (r StubRenderer) Render(ctx context.Context, _ CardData) ([]byte, error) {
	if r.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.Latency):
		}
	}
	out := make([]byte, len(stubPNG))
	copy(out, stubPNG)
	return out, nil
}
