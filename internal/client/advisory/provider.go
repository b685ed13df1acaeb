package advisory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dbhealth/internal/config"
)

// Supported provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Provider is a language-model completion service.
type Provider interface {
	// Name returns the provider name recorded in the report.
	Name() string
	// Complete returns the model's reply to the prompts.
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewProvider creates the configured provider.
func NewProvider(cfg *config.AdvisoryConfig, retryCfg *config.RetryConfig, logger zerolog.Logger) (Provider, error) {
	switch cfg.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicClient(cfg, retryCfg, logger), nil
	case ProviderGemini:
		return NewGeminiClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported advisory provider: %s", cfg.Provider)
	}
}
