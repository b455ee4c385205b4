// Package service provides the dialogue and speech services the sequencer
// talks to: an HTTP client for a hosted backend, an offline mock and a
// caching decorator for speech.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rockhound/narrator/dialogue"
)

// codeQuotaExceeded is the body error code that means the same as HTTP 429.
const codeQuotaExceeded = "quota_exceeded"

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"-"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("service error %d: %s", e.Status, msg)
}

// Is matches dialogue.ErrQuota for rate limit responses.
func (e *APIError) Is(target error) bool {
	return target == dialogue.ErrQuota &&
		(e.Status == http.StatusTooManyRequests || e.Code == codeQuotaExceeded)
}

type dialogueRequest struct {
	Mode  string `json:"mode"`
	Topic string `json:"topic,omitempty"`
}

type dialogueResponse struct {
	Lines []string `json:"lines"`
}

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// HTTPClient talks JSON to a hosted dialogue and speech backend.
type HTTPClient struct {
	endpoint string
	apiKey   string
	voice    string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPClient returns a client for cfg.Endpoint. A nil httpClient uses
// http.DefaultClient.
func NewHTTPClient(cfg dialogue.ServiceConfig, httpClient *http.Client) (*HTTPClient, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: service endpoint is required", dialogue.ErrInvalidConfig)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		voice:    cfg.Voice,
		client:   httpClient,
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// Generate asks the backend for the lines of a script.
func (c *HTTPClient) Generate(ctx context.Context, mode dialogue.Mode, topic string) ([]string, error) {
	var resp dialogueResponse
	if err := c.post(ctx, "/dialogue", dialogueRequest{Mode: mode.String(), Topic: topic}, &resp); err != nil {
		return nil, err
	}
	return resp.Lines, nil
}

// Synthesize asks the backend to speak text.
func (c *HTTPClient) Synthesize(ctx context.Context, text string) (*dialogue.Speech, error) {
	var speech dialogue.Speech
	if err := c.post(ctx, "/speech", speechRequest{Text: text, Voice: c.voice}, &speech); err != nil {
		return nil, err
	}
	return &speech, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for request slot: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	reqID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	log.Debug("Service call", "path", path, "status", resp.StatusCode, "request_id", reqID, "took", time.Since(start))

	if resp.StatusCode/100 != 2 {
		return parseAPIError(resp.StatusCode, data, reqID)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func parseAPIError(status int, body []byte, reqID string) error {
	apiErr := &APIError{Status: status, RequestID: reqID}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		apiErr.Code, apiErr.Message = envelope.Error.Code, envelope.Error.Message
	} else if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

var _ interface {
	dialogue.Generator
	dialogue.Synthesizer
} = (*HTTPClient)(nil)
