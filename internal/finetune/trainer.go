package finetune

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/models"
)

const trainingSystemPrompt = "You are a coding assistant. Reply with code only, no explanations."

type Options struct {
	BaseModel string
	Epochs    int
	BatchSize int
}

// Trainer fits a model on pairs and describes the result.
type Trainer interface {
	Train(ctx context.Context, pairs []models.TrainingPair, opts Options) (*models.ModelArtifact, error)
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	Suffix       string
}

// OpenAITrainer uploads a chat JSONL file and waits for the fine-tuning job.
type OpenAITrainer struct {
	client       *openai.Client
	pollInterval time.Duration
	suffix       string
	logger       *zap.Logger
}

func NewOpenAITrainer(cfg OpenAIConfig, logger *zap.Logger) *OpenAITrainer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 30 * time.Second
	}

	return &OpenAITrainer{
		client:       openai.NewClientWithConfig(clientConfig),
		pollInterval: poll,
		suffix:       cfg.Suffix,
		logger:       logger.Named("openai-trainer"),
	}
}

type chatLine struct {
	Messages []openai.ChatCompletionMessage `json:"messages"`
}

// EncodeJSONL renders pairs in the chat fine-tuning format.
func EncodeJSONL(pairs []models.TrainingPair) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range pairs {
		line := chatLine{Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: trainingSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: p.Prompt},
			{Role: openai.ChatMessageRoleAssistant, Content: p.Target},
		}}
		if err := enc.Encode(line); err != nil {
			return nil, fmt.Errorf("failed to encode pair %d: %w", p.ExampleID, err)
		}
	}
	return buf.Bytes(), nil
}

func (t *OpenAITrainer) Train(ctx context.Context, pairs []models.TrainingPair, opts Options) (*models.ModelArtifact, error) {
	data, err := EncodeJSONL(pairs)
	if err != nil {
		return nil, err
	}

	file, err := t.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    "training.jsonl",
		Bytes:   data,
		Purpose: openai.PurposeFineTune,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload training file: %w", err)
	}
	t.logger.Info("Uploaded training file", zap.String("file_id", file.ID), zap.Int("pairs", len(pairs)))

	job, err := t.client.CreateFineTuningJob(ctx, openai.FineTuningJobRequest{
		TrainingFile: file.ID,
		Model:        opts.BaseModel,
		Suffix:       t.suffix,
		Hyperparameters: &openai.Hyperparameters{
			Epochs:    opts.Epochs,
			BatchSize: opts.BatchSize,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fine-tuning job: %w", err)
	}
	t.logger.Info("Started fine-tuning job", zap.String("job_id", job.ID), zap.String("base_model", opts.BaseModel))

	job, err = t.wait(ctx, job)
	if err != nil {
		return nil, err
	}

	return &models.ModelArtifact{
		Provider:      "openai",
		Model:         job.FineTunedModel,
		BaseModel:     opts.BaseModel,
		JobID:         job.ID,
		TrainingPairs: len(pairs),
		Epochs:        opts.Epochs,
		BatchSize:     opts.BatchSize,
		TrainedAt:     time.Now().UTC(),
	}, nil
}

func (t *OpenAITrainer) wait(ctx context.Context, job openai.FineTuningJob) (openai.FineTuningJob, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		switch job.Status {
		case "succeeded":
			if job.FineTunedModel == "" {
				return job, fmt.Errorf("fine-tuning job %s succeeded without a model", job.ID)
			}
			return job, nil
		case "failed", "cancelled":
			return job, fmt.Errorf("fine-tuning job %s %s", job.ID, job.Status)
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}

		next, err := t.client.RetrieveFineTuningJob(ctx, job.ID)
		if err != nil {
			return job, fmt.Errorf("failed to poll fine-tuning job %s: %w", job.ID, err)
		}
		if next.Status != job.Status {
			t.logger.Info("Fine-tuning job status", zap.String("job_id", next.ID), zap.String("status", next.Status))
		}
		job = next
	}
}
