package advisory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

// GeminiClient calls the Gemini generative model API.
type GeminiClient struct {
	apiKey    string
	model     string
	maxTokens int
	logger    zerolog.Logger
}

// NewGeminiClient creates a Gemini client. The underlying connection is opened per call.
func NewGeminiClient(cfg *config.AdvisoryConfig, logger zerolog.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.With().Str("component", "gemini-client").Logger(),
	}
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return ProviderGemini
}

// Complete generates a reply for the user prompt under the system instruction.
func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create gemini client: %v", model.ErrAdvisoryTransport, err)
	}
	defer client.Close()

	gm := client.GenerativeModel(c.model)
	gm.SetTemperature(0)
	if c.maxTokens > 0 {
		gm.SetMaxOutputTokens(int32(c.maxTokens))
	}
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	c.logger.Debug().Str("model", c.model).Int("prompt_bytes", len(user)).Msg("sending advisory request")

	resp, err := gm.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to generate content")
		return "", fmt.Errorf("%w: %v", model.ErrAdvisoryTransport, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from gemini", model.ErrAdvisoryParse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(fmt.Sprintf("%v", part))
	}
	return sb.String(), nil
}
