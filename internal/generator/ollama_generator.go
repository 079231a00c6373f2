package generator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaGenerator talks to a local Ollama server.
type OllamaGenerator struct {
	model   string
	timeout time.Duration
	client  *api.Client
	logger  *zap.Logger
}

func NewOllamaGenerator(host, model string, timeout time.Duration, logger *zap.Logger) (*OllamaGenerator, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OllamaGenerator{
		model:   model,
		timeout: timeout,
		client:  api.NewClient(u, &http.Client{}),
		logger:  logger.Named("ollama-generator").With(zap.String("model", model)),
	}, nil
}

func (o *OllamaGenerator) Generate(ctx context.Context, prompt, seed string) string {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(prompt, seed)},
		},
		Stream: &stream,
	}

	var result strings.Builder
	if err := o.client.Chat(ctx, req, func(res api.ChatResponse) error {
		result.WriteString(res.Message.Content)
		return nil
	}); err != nil {
		o.logger.Error("Failed to get Ollama response", zap.Error(err))
		return ""
	}

	return ExtractCode(result.String())
}
