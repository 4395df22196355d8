// Package backend is the HTTP client for the external retrieval/LLM
// backend. The chat endpoint streams the delimiter-framed wire protocol;
// everything else is plain request/response JSON.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"golivebuddy/internal/config"
	"golivebuddy/internal/domain"
)

const chunkSize = 2048

// ChatRequest is the payload for a streaming chat call
type ChatRequest struct {
	Messages  []*domain.Message `json:"messages"`
	Namespace string            `json:"namespace"`
	Image     string            `json:"image,omitempty"`
}

// StatusError is a non-success backend response; the body is a plain-text
// error surfaced to the user as a single error event
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Client talks to the retrieval/LLM backend
type Client struct {
	cfg    config.BackendConfig
	logger *zap.Logger

	// stream must not go through retry middleware: a replayed request
	// would duplicate chunks already applied to the conversation
	stream *http.Client
	retry  *retryablehttp.Client
}

// NewClient creates a backend client
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.Logger = nil
	retry.HTTPClient.Timeout = cfg.BackendTimeout()

	return &Client{
		cfg:    cfg.Backend,
		logger: logger,
		stream: &http.Client{}, // no client timeout; streams are ctx-bounded
		retry:  retry,
	}
}

// ChatStream opens a streaming chat call. On success it returns a channel
// of raw text chunks in arrival order, closed at end of stream. A non-2xx
// status is returned as a StatusError carrying the response body.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest) (<-chan string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.ChatPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(msg)}
	}

	ch := make(chan string, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		buf := make([]byte, chunkSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case ch <- string(buf[:n]):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					c.logger.Warn("chat stream ended abnormally", zap.Error(err))
				}
				return
			}
		}
	}()
	return ch, nil
}

// SubmitTicket sends a ticket draft to the backend ticketing integration
func (c *Client) SubmitTicket(ctx context.Context, draft *domain.TicketDraft) error {
	return c.postJSON(ctx, c.cfg.BaseURL+c.cfg.TicketPath, draft, nil)
}

// GeneratePulse asks the backend to aggregate recent queries into a new
// pulse snapshot for the tech id
func (c *Client) GeneratePulse(ctx context.Context, techID string) (*domain.PulseSnapshot, error) {
	var out struct {
		Status string               `json:"status"`
		Data   domain.PulseSnapshot `json:"data"`
	}
	payload := map[string]string{"namespace": techID}
	if err := c.postJSON(ctx, c.cfg.BaseURL+c.cfg.PulsePath, payload, &out); err != nil {
		return nil, err
	}
	out.Data.TechID = techID
	return &out.Data, nil
}

// ForwardIngest forwards an ingestion request to the backend pipeline
func (c *Client) ForwardIngest(ctx context.Context, req *domain.IngestRequest) error {
	if req.Mode == "" {
		req.Mode = "Standard"
	}
	return c.postJSON(ctx, c.cfg.BaseURL+c.cfg.IngestPath, req, nil)
}

func (c *Client) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.retry.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(msg)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode backend response: %w", err)
		}
	}
	return nil
}
