// Package finetune builds a training set from rated examples and fine-tunes
// the generator model on it.
package finetune

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/storage"
)

var ErrNoTrainingData = errors.New("no training data")

type Config struct {
	ArtifactPath string
	BaseModel    string
	Epochs       int
	BatchSize    int
	MaxTokens    int
}

type Pipeline struct {
	store   storage.ExampleStore
	trainer Trainer
	config  Config
	logger  *zap.Logger
}

func New(store storage.ExampleStore, trainer Trainer, config Config, logger *zap.Logger) *Pipeline {
	if config.Epochs <= 0 {
		config.Epochs = 3
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 4
	}
	return &Pipeline{store: store, trainer: trainer, config: config, logger: logger.Named("finetune")}
}

// Pairs loads the training examples and formats them, truncated to the
// token budget.
func (p *Pipeline) Pairs(ctx context.Context) ([]models.TrainingPair, error) {
	examples, err := p.store.ListTrainingExamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load training examples: %w", err)
	}

	pairs := FormatPairs(examples)
	if len(pairs) == 0 {
		return nil, ErrNoTrainingData
	}

	truncator, err := NewTruncator(p.config.MaxTokens)
	if err != nil {
		return nil, err
	}
	if err := truncatePairs(truncator, pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// Run trains a new model and replaces the artifact. With no training data
// it returns ErrNoTrainingData and leaves the artifact untouched.
func (p *Pipeline) Run(ctx context.Context) (*models.ModelArtifact, error) {
	pairs, err := p.Pairs(ctx)
	if errors.Is(err, ErrNoTrainingData) {
		p.logger.Error("No training data available, model left unchanged", zap.Error(err))
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("Starting fine-tune",
		zap.Int("pairs", len(pairs)),
		zap.String("base_model", p.config.BaseModel),
		zap.Int("epochs", p.config.Epochs),
		zap.Int("batch_size", p.config.BatchSize))

	artifact, err := p.trainer.Train(ctx, pairs, Options{
		BaseModel: p.config.BaseModel,
		Epochs:    p.config.Epochs,
		BatchSize: p.config.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}

	if err := SaveArtifact(p.config.ArtifactPath, artifact); err != nil {
		return nil, err
	}

	p.logger.Info("Model saved", zap.String("model", artifact.Model), zap.String("path", p.config.ArtifactPath))
	return artifact, nil
}
