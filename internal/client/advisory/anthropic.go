package advisory

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

const (
	// DefaultAnthropicEndpoint is the public Anthropic API base URL.
	DefaultAnthropicEndpoint = "https://api.anthropic.com"
	// anthropicVersion is the API version header value.
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	model      string
	maxTokens  int
	httpClient *resty.Client
	logger     zerolog.Logger
}

// NewAnthropicClient creates a Messages API client.
func NewAnthropicClient(cfg *config.AdvisoryConfig, retryCfg *config.RetryConfig, logger zerolog.Logger) *AnthropicClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultAnthropicEndpoint
	}

	// No retry unless configured.
	retry := config.RetryConfig{BaseDelay: time.Second}
	if retryCfg != nil {
		retry = *retryCfg
	}

	httpClient := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay * 8).
		AddRetryCondition(retryCondition)

	return &AnthropicClient{
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "anthropic-client").Logger(),
	}
}

// retryCondition retries on transport errors and 5xx/429 responses.
func retryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

// Complete sends one user message with a system prompt and returns the reply text.
func (c *AnthropicClient) Complete(ctx context.Context, system, user string) (string, error) {
	body := messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: 0,
		System:      system,
		Messages:    []message{{Role: "user", Content: user}},
	}

	c.logger.Debug().Str("model", c.model).Int("prompt_bytes", len(user)).Msg("sending advisory request")

	var result messagesResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/v1/messages")
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to call messages API")
		return "", fmt.Errorf("%w: %v", model.ErrAdvisoryTransport, err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("body", string(resp.Body())).
			Msg("messages API returned non-200 status")
		return "", fmt.Errorf("%w: messages API returned status %d: %s",
			model.ErrAdvisoryTransport, resp.StatusCode(), string(resp.Body()))
	}

	if result.Error != nil {
		return "", fmt.Errorf("%w: %s: %s", model.ErrAdvisoryTransport, result.Error.Type, result.Error.Message)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: response contains no text content", model.ErrAdvisoryParse)
	}

	c.logger.Debug().Str("stop_reason", result.StopReason).Int("reply_bytes", len(text)).Msg("advisory reply received")
	return text, nil
}
