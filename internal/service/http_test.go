package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rockhound/narrator/dialogue"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(dialogue.ServiceConfig{
		Endpoint: srv.URL + "/",
		APIKey:   "secret",
		Voice:    "guide",
	}, srv.Client())
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	return c
}

func TestHTTPClientGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/dialogue" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing request id")
		}
		var req dialogueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Mode != "tour" || req.Topic != "quartz" {
			t.Errorf("request body = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(dialogueResponse{Lines: []string{"one", "two"}})
	})

	lines, err := c.Generate(context.Background(), dialogue.ModeTour, "quartz")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("Generate() = %v", lines)
	}
}

func TestHTTPClientSynthesize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req speechRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Text != "hello" || req.Voice != "guide" {
			t.Errorf("request body = %+v", req)
		}
		_, _ = w.Write([]byte(`{"audio":"AAAA","sample_rate":16000,"channels":1,"visemes":[{"time":0,"value":10}]}`))
	})

	speech, err := c.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if speech.Audio != "AAAA" || speech.SampleRate != 16000 || len(speech.Visemes) != 1 {
		t.Errorf("Synthesize() = %+v", speech)
	}
}

func TestHTTPClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		quota  bool
	}{
		{"too many requests", http.StatusTooManyRequests, ``, true},
		{"quota code", http.StatusForbidden, `{"code":"quota_exceeded","message":"daily limit"}`, true},
		{"nested quota code", http.StatusBadRequest, `{"error":{"code":"quota_exceeded"}}`, true},
		{"server error", http.StatusInternalServerError, `boom`, false},
		{"bad request", http.StatusBadRequest, `{"code":"invalid_mode"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Generate(context.Background(), dialogue.ModeIntro, "")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
			if got := errors.Is(err, dialogue.ErrQuota); got != tt.quota {
				t.Errorf("errors.Is(ErrQuota) = %v, want %v", got, tt.quota)
			}
		})
	}
}

func TestHTTPClientMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"lines":`))
	})
	if _, err := c.Generate(context.Background(), dialogue.ModeIntro, ""); err == nil {
		t.Error("Generate() should fail on malformed JSON")
	}
}

func TestHTTPClientCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Synthesize(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Synthesize() error = %v, want context.Canceled", err)
	}
}

func TestNewHTTPClientRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPClient(dialogue.ServiceConfig{}, nil); !errors.Is(err, dialogue.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}
