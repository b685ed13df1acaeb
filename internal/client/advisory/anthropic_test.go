package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

// writeJSON writes a JSON response with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestConfig(endpoint string) *config.AdvisoryConfig {
	return &config.AdvisoryConfig{
		Enabled:   true,
		Provider:  ProviderAnthropic,
		APIKey:    "test-key",
		Endpoint:  endpoint,
		Model:     "claude-test",
		MaxTokens: 512,
		Timeout:   5 * time.Second,
	}
}

func TestAnthropicClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/v1/messages" {
			t.Errorf("expected path /v1/messages, got %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("expected x-api-key test-key, got %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			t.Errorf("expected anthropic-version %s, got %q", anthropicVersion, got)
		}

		var body messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body.Model != "claude-test" || body.MaxTokens != 512 {
			t.Errorf("unexpected model/max_tokens: %s/%d", body.Model, body.MaxTokens)
		}
		if body.System != "be terse" {
			t.Errorf("expected system prompt, got %q", body.System)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" || body.Messages[0].Content != "report" {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}

		writeJSON(w, map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": `{"commands":`},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": `[]}`},
			},
		})
	}))
	defer server.Close()

	client := NewAnthropicClient(newTestConfig(server.URL), nil, zerolog.Nop())
	text, err := client.Complete(context.Background(), "be terse", "report")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"commands":[]}` {
		t.Errorf("expected concatenated text, got %q", text)
	}
}

func TestAnthropicClient_Complete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(newTestConfig(server.URL), nil, zerolog.Nop())
	_, err := client.Complete(context.Background(), "", "report")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !errors.Is(err, model.ErrAdvisoryTransport) {
		t.Errorf("expected ErrAdvisoryTransport, got %v", err)
	}
}

func TestAnthropicClient_Complete_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "msg_2", "content": []any{}})
	}))
	defer server.Close()

	client := NewAnthropicClient(newTestConfig(server.URL), nil, zerolog.Nop())
	_, err := client.Complete(context.Background(), "", "report")
	if !errors.Is(err, model.ErrAdvisoryParse) {
		t.Errorf("expected ErrAdvisoryParse, got %v", err)
	}
}

func TestAnthropicClient_NoRetryByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewAnthropicClient(newTestConfig(server.URL), nil, zerolog.Nop())
	if _, err := client.Complete(context.Background(), "", "report"); err == nil {
		t.Fatal("expected error for 500 response")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected exactly 1 call, got %d", n)
	}
}

func TestAnthropicClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"content": []map[string]any{{"type": "text", "text": "ok"}}})
	}))
	defer server.Close()

	retry := &config.RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond}
	client := NewAnthropicClient(newTestConfig(server.URL), retry, zerolog.Nop())
	text, err := client.Complete(context.Background(), "", "report")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Errorf("expected ok, got %q", text)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{ProviderAnthropic, ProviderAnthropic, false},
		{"", ProviderAnthropic, false},
		{ProviderGemini, ProviderGemini, false},
		{"openai", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := newTestConfig("http://localhost")
			cfg.Provider = tt.provider

			p, err := NewProvider(cfg, nil, zerolog.Nop())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}
