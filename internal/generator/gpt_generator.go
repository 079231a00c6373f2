package generator

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = `You are a coding assistant. Reply with code only, no explanations.`

type GPTGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

type GPTConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func NewGPTGenerator(cfg GPTConfig, logger *zap.Logger) *GPTGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &GPTGenerator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger.Named("gpt-generator").With(zap.String("model", cfg.Model)),
	}
}

func (g *GPTGenerator) Model() string {
	return g.model
}

func (g *GPTGenerator) Generate(ctx context.Context, prompt, seed string) string {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: BuildPrompt(prompt, seed),
				},
			},
			MaxTokens:   g.maxTokens,
			Temperature: float32(g.temperature),
		},
	)
	if err != nil {
		g.logger.Error("Failed to get GPT response", zap.Error(err))
		return ""
	}

	if len(resp.Choices) == 0 {
		g.logger.Error("GPT response has no choices")
		return ""
	}

	return ExtractCode(strings.TrimSpace(resp.Choices[0].Message.Content))
}
